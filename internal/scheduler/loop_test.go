package scheduler_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/backup"
	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/liveness"
	"github.com/hamed0406/statechecker/internal/notify"
	"github.com/hamed0406/statechecker/internal/repo/memory"
	"github.com/hamed0406/statechecker/internal/scheduler"
	"github.com/hamed0406/statechecker/internal/transition"
)

type inbox struct {
	mu     sync.Mutex
	errors []string
}

func (i *inbox) Send(ctx context.Context, audience notify.Audience, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if audience == notify.AudienceError {
		i.errors = append(i.errors, text)
	}
	return nil
}

func (i *inbox) errorCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.errors)
}

func (i *inbox) last() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.errors[len(i.errors)-1]
}

type staticSource struct {
	items []backup.Artifact
}

func (s *staticSource) ListArtifacts(ctx context.Context, token string) ([]backup.Artifact, error) {
	return s.items, nil
}

var _ = Describe("Scheduler", func() {
	var (
		ctx   context.Context
		store *memory.Store
		box   *inbox
		sched *scheduler.Scheduler
		now   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.New()
		box = &inbox{}
		now = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
		sched = scheduler.New(zap.NewNop(),
			scheduler.Config{BaseIntervalSeconds: 60, OffsetPercent: 10, ProbeEveryMinutes: 30},
			store,
			&liveness.Evaluator{DefaultToleranceSeconds: 60},
			transition.Detector{},
			notify.NewDispatcher(notify.Channel{Name: "inbox", Notifier: box}),
		)
		sched.Now = func() time.Time { return now }
	})

	Describe("a heartbeat subject that stops reporting", func() {
		BeforeEach(func() {
			Expect(store.RegisterHeartbeat(ctx, domain.HeartbeatSubject{
				Name:             "sync-worker",
				Description:      "moves orders to the warehouse",
				FrequencyMinutes: 5,
				ToleranceSeconds: 60,
				LastSeenAt:       now.Add(-600 * time.Second),
			})).To(Succeed())
		})

		It("reports down once and up once", func() {
			By("going down after frequency plus tolerance")
			Expect(sched.Tick(ctx)).To(Succeed())
			Expect(box.errorCount()).To(Equal(1))
			Expect(box.last()).To(ContainSubstring("Your tool is <b>DOWN!</b>"))
			Expect(box.last()).To(ContainSubstring("<b>sync-worker</b>\nmoves orders to the warehouse"))

			By("staying quiet while still down")
			now = now.Add(time.Minute)
			Expect(sched.Tick(ctx)).To(Succeed())
			Expect(box.errorCount()).To(Equal(1))

			By("recovering once the worker pushes again")
			Expect(store.TouchHeartbeat(ctx, "sync-worker", now)).To(Succeed())
			Expect(sched.Tick(ctx)).To(Succeed())
			Expect(box.errorCount()).To(Equal(2))
			Expect(box.last()).To(ContainSubstring("UP AGAIN!"))

			rows, err := store.ListHeartbeatSubjects(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].DownNotified).To(BeFalse())
		})
	})

	Describe("a backup folder", func() {
		var src *staticSource

		BeforeEach(func() {
			src = &staticSource{items: []backup.Artifact{
				{CreatedAt: now.Add(-30 * time.Minute), Checksum: "a"},
				{CreatedAt: now.Add(-10 * time.Minute), Checksum: "b"},
			}}
			sched.Scanner = &backup.Scanner{
				Sources: map[string]backup.Source{"static": src},
				Folders: []backup.Folder{{Name: "db-dump", Source: "static", Token: "dumps", FrequencyMinutes: 60}},
				Log:     zap.NewNop(),
			}
			sched.Config.BackupScanEveryMinutes = 2
		})

		It("goes down when no new artifact appears in time", func() {
			Expect(sched.Tick(ctx)).To(Succeed())
			Expect(box.errorCount()).To(BeZero())

			rows, err := store.ListBackupSubjects(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].MostRecentArtifactChecksum).To(Equal("b"))

			// 60 minutes allow 60*65s of slack after the newest artifact.
			now = now.Add(56 * time.Minute)
			Expect(sched.Tick(ctx)).To(Succeed())
			Expect(box.errorCount()).To(Equal(1))
			Expect(box.last()).To(ContainSubstring("<b>db-dump</b>"))
		})
	})

	Describe("Snapshot", func() {
		It("is empty before the first tick", func() {
			Expect(sched.Snapshot()).To(BeEmpty())
		})
	})
})
