// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmdrunner

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/shipit-project/shipit/model"
	"github.com/shipit-project/shipit/model/modelmocks"
)

func TestCommandRunner(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal/CmdRunner")
}

var _ = Describe("CommandRunner", func() {
	var (
		mockctl *gomock.Controller
		logger  *modelmocks.MockLogger
		runner  *CommandRunner
		err     error
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("posix commands required")
		}

		mockctl = gomock.NewController(GinkgoT())
		logger = modelmocks.NewQuietLogger(mockctl)

		runner, err = NewCommandRunner(GinkgoT().TempDir(), logger)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		mockctl.Finish()
	})

	Describe("NewCommandRunner", func() {
		It("Should require a working directory", func() {
			_, err := NewCommandRunner("", logger)
			Expect(err).To(MatchError(model.ErrWorkDirRequired))
		})
	})

	Describe("Execute", func() {
		It("Should capture stdout and report exit code 0", func() {
			stdout, stderr, code, err := runner.Execute(context.Background(), "/bin/sh", "-c", "echo hello")
			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(string(stdout)).To(Equal("hello\n"))
			Expect(stderr).To(BeEmpty())
		})

		It("Should capture stderr", func() {
			stdout, stderr, code, err := runner.Execute(context.Background(), "/bin/sh", "-c", "echo oops >&2")
			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(stdout).To(BeEmpty())
			Expect(string(stderr)).To(Equal("oops\n"))
		})

		It("Should return non zero exit codes without error", func() {
			_, _, code, err := runner.Execute(context.Background(), "/bin/sh", "-c", "exit 3")
			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(3))
		})

		It("Should error for commands that cannot be started", func() {
			_, _, code, err := runner.Execute(context.Background(), "/nonexistent/binary")
			Expect(err).To(HaveOccurred())
			Expect(code).To(Equal(-1))
		})

		It("Should run commands from the configured working directory", func() {
			dir := GinkgoT().TempDir()
			r, err := NewCommandRunner(dir, logger)
			Expect(err).ToNot(HaveOccurred())

			stdout, _, code, err := r.Execute(context.Background(), "/bin/sh", "-c", "pwd")
			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(0))

			resolved, err := os.Stat(dir)
			Expect(err).ToNot(HaveOccurred())
			got, err := os.Stat(string(stdout[:len(stdout)-1]))
			Expect(err).ToNot(HaveOccurred())
			Expect(os.SameFile(resolved, got)).To(BeTrue())
		})
	})

	Describe("ExecuteWithOptions", func() {
		It("Should kill commands that exceed their timeout", func() {
			start := time.Now()
			_, _, _, err := runner.ExecuteWithOptions(context.Background(), model.ExtendedExecOptions{
				Command: "/bin/sleep",
				Args:    []string{"30"},
				Timeout: 100 * time.Millisecond,
			})

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
		})

		It("Should pass extra environment variables", func() {
			stdout, _, code, err := runner.ExecuteWithOptions(context.Background(), model.ExtendedExecOptions{
				Command:     "/bin/sh",
				Args:        []string{"-c", "echo $SHIPIT_TEST"},
				Environment: []string{"SHIPIT_TEST=wired"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(string(stdout)).To(Equal("wired\n"))
		})

		It("Should honor a cwd override", func() {
			other := GinkgoT().TempDir()
			stdout, _, _, err := runner.ExecuteWithOptions(context.Background(), model.ExtendedExecOptions{
				Command: "/bin/sh",
				Args:    []string{"-c", "pwd"},
				Cwd:     other,
			})
			Expect(err).ToNot(HaveOccurred())

			resolved, err := os.Stat(other)
			Expect(err).ToNot(HaveOccurred())
			got, err := os.Stat(string(stdout[:len(stdout)-1]))
			Expect(err).ToNot(HaveOccurred())
			Expect(os.SameFile(resolved, got)).To(BeTrue())
		})

		It("Should require a command", func() {
			_, _, _, err := runner.ExecuteWithOptions(context.Background(), model.ExtendedExecOptions{})
			Expect(err).To(MatchError("command not specified"))
		})
	})
})
