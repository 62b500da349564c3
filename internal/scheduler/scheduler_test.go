package scheduler_test

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/marsvis/internal/pacing"
	"github.com/san-kum/marsvis/internal/scheduler"
	"github.com/san-kum/marsvis/internal/state"
	"github.com/san-kum/marsvis/internal/wire"
)

func mustDecode(payload string) *wire.Message {
	msg, err := wire.Decode([]byte(payload))
	Expect(err).NotTo(HaveOccurred())
	return msg
}

var _ = Describe("Scheduler", func() {
	var (
		store  *state.Store
		client *fakeIngester
		pc     *pacing.Controller
		rec    *recordingRenderer
		sched  *scheduler.Scheduler
		ctx    context.Context
		cancel context.CancelFunc
		runErr chan error
	)

	build := func(r scheduler.Renderer) {
		sched = scheduler.New(store, client, pc, r, scheduler.Options{Log: logr.Discard()})
	}

	// start runs the current scheduler and registers a cleanup that waits
	// for Run to return before the next spec rebuilds the fixtures.
	start := func() {
		s, c, ch, done := sched, ctx, make(chan error, 1), make(chan struct{})
		runErr = ch
		go func() {
			defer GinkgoRecover()
			defer close(done)
			ch <- s.Run(c)
		}()
		DeferCleanup(func() {
			s.Stop()
			Eventually(done, time.Second).Should(BeClosed())
		})
	}

	BeforeEach(func() {
		store = state.New(state.Options{})
		client = newFakeIngester(store)
		pc = pacing.New(200, 10)
		rec = &recordingRenderer{}
		build(rec)
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(func() {
			sched.Stop()
			cancel()
		})
	})

	Describe("rendering", func() {
		It("waits until the first merge, then renders frames", func() {
			start()
			Eventually(rec.waitCount).Should(BeNumerically(">", 0))
			Consistently(rec.frameCount, 50*time.Millisecond).Should(BeZero())

			client.msgs <- mustDecode(`{"currentTick": 3, "entities": {"1": [{"x": 1, "y": 2}]}}`)
			Eventually(rec.frameCount).Should(BeNumerically(">", 0))

			Eventually(func() uint64 { return rec.lastFrame().Stats.Messages }).Should(Equal(uint64(1)))
			f := rec.lastFrame()
			Expect(f.Snapshot.Progress.CurrentTick).To(Equal(3))
			Expect(f.Snapshot.Entities[1]).To(ConsistOf(wire.Entity{X: 1, Y: 2}))
			Expect(f.Stats.Connected).To(BeTrue())
			Expect(f.Stats.DesiredFPS).To(Equal(200))
			Expect(f.Stats.PacingMs).To(Equal(10))
			Expect(sched.Stats().MeasuredFPS).To(BeNumerically(">", 0))
		})

		It("goes back to waiting after a reset and reconnects", func() {
			start()
			client.msgs <- mustDecode(`{"currentTick": 1}`)
			Eventually(rec.frameCount).Should(BeNumerically(">", 0))

			waits := rec.waitCount()
			client.msgs <- nil
			Eventually(rec.waitCount).Should(BeNumerically(">", waits))
			Eventually(client.connectCount).Should(Equal(2))
			Expect(store.HasData()).To(BeFalse())
		})

		It("skips frames for renderers without a waiting state", func() {
			r := &renderOnly{}
			build(r)
			start()
			Consistently(r.renders, 50*time.Millisecond).Should(BeZero())

			client.msgs <- mustDecode(`{"currentTick": 1}`)
			Eventually(r.renders).Should(BeNumerically(">", 0))
		})

		It("applies render rate changes on the next iteration", func() {
			pc = pacing.New(pacing.MinRenderRate, 10)
			build(rec)
			start()
			Consistently(rec.waitCount, 300*time.Millisecond).Should(BeNumerically("<=", 3))

			for i := 0; i < 400; i++ {
				sched.IncreaseRenderRate()
			}
			Expect(pc.RenderRate()).To(Equal(pacing.MaxRenderRate))

			before := rec.waitCount()
			Eventually(func() int { return rec.waitCount() - before }, 2*time.Second).
				Should(BeNumerically(">=", 30))
		})
	})

	Describe("pacing controls", func() {
		It("drops pacing updates while disconnected", func() {
			Expect(sched.DecreaseIngestPacing()).To(Equal(7))
			Expect(client.sentPacing()).To(BeEmpty())
			Expect(pc.CurrentIngestPacing()).To(Equal(7))
		})

		It("sends pacing updates over a live connection", func() {
			start()
			Eventually(client.sentPacing).Should(Equal([]int{10}))

			Expect(sched.IncreaseIngestPacing()).To(Equal(20))
			Expect(sched.DecreaseIngestPacing()).To(Equal(17))
			Expect(client.sentPacing()).To(Equal([]int{10, 20, 17}))
		})

		It("sends the configured pacing after each connect", func() {
			pc = pacing.New(200, 50)
			build(rec)
			Expect(sched.DecreaseIngestPacing()).To(Equal(47))
			Expect(client.sentPacing()).To(BeEmpty())

			start()
			Eventually(client.sentPacing).Should(Equal([]int{47}))

			client.msgs <- nil
			Eventually(client.connectCount).Should(Equal(2))
			Eventually(client.sentPacing).Should(Equal([]int{47, 47}))
		})

		It("adjusts the render rate in steps", func() {
			Expect(sched.DecreaseRenderRate()).To(Equal(197))
			Expect(sched.IncreaseRenderRate()).To(Equal(200))
		})
	})

	Describe("shutdown", func() {
		It("stops a loop blocked on receive", func() {
			start()
			Eventually(client.Connected).Should(BeTrue())

			sched.Stop()
			Eventually(runErr, time.Second).Should(Receive(BeNil()))
			Expect(sched.Running()).To(BeFalse())
			Expect(client.Connected()).To(BeFalse())
		})

		It("stops when the context is cancelled", func() {
			start()
			Eventually(sched.Running).Should(BeTrue())

			cancel()
			Eventually(runErr, time.Second).Should(Receive(BeNil()))
		})

		It("returns permanent connect errors", func() {
			bad := errors.New("unsupported scheme")
			client.connectErr = bad
			start()
			Eventually(runErr, time.Second).Should(Receive(MatchError(bad)))
		})

		It("refuses a second concurrent run", func() {
			start()
			Eventually(sched.Running).Should(BeTrue())
			Expect(sched.Run(ctx)).To(MatchError(scheduler.ErrAlreadyRunning))
		})
	})
})
