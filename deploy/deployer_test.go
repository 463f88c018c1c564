// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/shipit-project/shipit/config"
	"github.com/shipit-project/shipit/model"
	"github.com/shipit-project/shipit/model/modelmocks"
)

func TestDeploy(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Deploy")
}

var _ = Describe("Deployer", func() {
	var (
		mockctl *gomock.Controller
		logger  *modelmocks.MockLogger
		runner  *modelmocks.MockCommandRunner
		cfg     *config.Config
		calls   []string
	)

	testFacts := map[string]any{"hostname": "build-box", "timestamp": "2026-08-31T10:00:00Z"}

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		logger = modelmocks.NewQuietLogger(mockctl)
		runner = modelmocks.NewMockCommandRunner(mockctl)
		calls = nil

		cfg = config.NewDefaultConfig(GinkgoT().TempDir())
		cfg.SettleDelay = "1ms"
	})

	AfterEach(func() {
		mockctl.Finish()
	})

	newDeployer := func(opts ...Option) *Deployer {
		opts = append([]Option{WithRunner(runner), WithFacts(testFacts)}, opts...)
		d, err := New(cfg, logger, logger, opts...)
		Expect(err).ToNot(HaveOccurred())
		return d
	}

	// scripts the runner, commands are recorded and the supplied
	// outcomes looked up by command prefix
	scriptRunner := func(outcomes map[string]struct {
		exit int
		err  error
	}) {
		runner.EXPECT().ExecuteWithOptions(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, opts model.ExtendedExecOptions) ([]byte, []byte, int, error) {
				cmd := strings.Join(append([]string{opts.Command}, opts.Args...), " ")
				calls = append(calls, cmd)

				for prefix, outcome := range outcomes {
					if strings.HasPrefix(cmd, prefix) {
						return []byte("out"), nil, outcome.exit, outcome.err
					}
				}

				return nil, nil, 0, nil
			}).AnyTimes()
	}

	type outcome = struct {
		exit int
		err  error
	}

	Describe("New", func() {
		It("Should require an existing working directory", func() {
			cfg.WorkDir = "/nonexistent/repo"
			_, err := New(cfg, logger, logger, WithRunner(runner))
			Expect(err).To(MatchError(model.ErrWorkDirNotFound))
		})

		It("Should reject a nil runner", func() {
			_, err := New(cfg, logger, logger, WithRunner(nil))
			Expect(err).To(MatchError(model.ErrNoRunner))
		})
	})

	Describe("Run", func() {
		It("Should run all five steps in order on success", func() {
			scriptRunner(map[string]outcome{})

			d := newDeployer()
			summary, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.Success).To(BeTrue())
			Expect(summary.SucceededSteps).To(Equal(5))

			Expect(calls).To(HaveLen(5))
			Expect(calls[0]).To(Equal("git status --porcelain"))
			Expect(calls[1]).To(Equal("git add ."))
			Expect(calls[2]).To(HavePrefix("git commit -m"))
			Expect(calls[3]).To(Equal("git push"))
			Expect(calls[4]).To(Equal("gh run list --limit 3"))
		})

		It("Should abort everything when the status check fails", func() {
			scriptRunner(map[string]outcome{"git status": {exit: 128}})

			d := newDeployer()
			summary, err := d.Run(context.Background())
			Expect(err).To(MatchError(model.ErrDeployFailed))
			Expect(summary.Success).To(BeFalse())
			Expect(summary.FailedSteps).To(Equal(1))
			Expect(summary.SkippedSteps).To(Equal(4))

			Expect(calls).To(Equal([]string{"git status --porcelain"}))
		})

		It("Should treat a commit failure as advisory and still succeed", func() {
			scriptRunner(map[string]outcome{"git commit": {exit: 1}})

			d := newDeployer()
			summary, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.Success).To(BeTrue())
			Expect(summary.AdvisoryFailures).To(Equal(1))

			Expect(calls).To(HaveLen(5))
			Expect(calls[3]).To(Equal("git push"))
		})

		It("Should fail and skip the runs check when the push fails", func() {
			scriptRunner(map[string]outcome{"git push": {exit: 1}})

			d := newDeployer()
			summary, err := d.Run(context.Background())
			Expect(err).To(MatchError(model.ErrDeployFailed))
			Expect(summary.Success).To(BeFalse())

			Expect(calls).To(HaveLen(4))
			for _, call := range calls {
				Expect(call).ToNot(HavePrefix("gh run list"))
			}
		})

		It("Should succeed even when the runs check fails", func() {
			scriptRunner(map[string]outcome{"gh run list": {exit: 4}})

			d := newDeployer()
			summary, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.Success).To(BeTrue())
			Expect(summary.AdvisoryFailures).To(Equal(1))
		})

		It("Should treat execution faults like step failures", func() {
			scriptRunner(map[string]outcome{"git add": {exit: -1, err: errors.New("exec: git: not found")}})

			d := newDeployer()
			_, err := d.Run(context.Background())
			Expect(err).To(MatchError(model.ErrDeployFailed))
			Expect(calls).To(HaveLen(2))
		})

		It("Should resolve the commit message template", func() {
			cfg.CommitMessage = "deploy from {{ Facts.hostname }}"
			scriptRunner(map[string]outcome{})

			d := newDeployer()
			_, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(calls[2]).To(ContainSubstring("build-box"))
		})

		It("Should pass push arguments to the push step", func() {
			cfg.PushArgs = "origin main"
			scriptRunner(map[string]outcome{})

			d := newDeployer()
			_, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(calls[3]).To(Equal("git push origin main"))
		})

		It("Should skip the runs check when disabled", func() {
			cfg.SkipRunsCheck = true
			scriptRunner(map[string]outcome{})

			d := newDeployer()
			summary, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.TotalSteps).To(Equal(4))
		})

		It("Should run pre and post steps around the git sequence", func() {
			cfg.PreSteps = []*model.StepProperties{{Name: "lint", Command: "make lint"}}
			cfg.PostSteps = []*model.StepProperties{{Name: "announce", Command: "./announce.sh", Advisory: true}}
			scriptRunner(map[string]outcome{})

			d := newDeployer()
			summary, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.TotalSteps).To(Equal(7))
			Expect(calls[0]).To(Equal("make lint"))
			Expect(calls[6]).To(Equal("./announce.sh"))
		})

		It("Should only run read-only steps in noop mode", func() {
			scriptRunner(map[string]outcome{})

			d := newDeployer(WithNoop())
			summary, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.NoopSteps).To(Equal(3))

			Expect(calls).To(Equal([]string{"git status --porcelain", "gh run list --limit 3"}))
		})

		It("Should record events for every step", func() {
			scriptRunner(map[string]outcome{"git commit": {exit: 1}})

			d := newDeployer()
			_, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())

			events, err := d.Session().EventsForStep(model.StepCommit)
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Failed).To(BeTrue())
			Expect(events[0].Class).To(Equal(model.StepClassAdvisory))
			Expect(*events[0].ExitCode).To(Equal(1))
		})

		It("Should notify a configured notifier of each event", func() {
			scriptRunner(map[string]outcome{})

			var notified []string
			notifier := notifierFunc(func(event model.SessionEvent) error {
				if e, ok := event.(*model.StepEvent); ok {
					notified = append(notified, e.Step)
				}
				return nil
			})

			d := newDeployer(WithNotifier(notifier))
			_, err := d.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(notified).To(Equal([]string{"status", "stage", "commit", "push", "runs"}))
		})
	})
})

type notifierFunc func(event model.SessionEvent) error

func (f notifierFunc) PublishEvent(event model.SessionEvent) error { return f(event) }
