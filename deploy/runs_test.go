// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/shipit-project/shipit/model"
	"github.com/shipit-project/shipit/model/modelmocks"
)

var _ = Describe("WorkflowRuns", func() {
	var (
		mockctl *gomock.Controller
		runner  *modelmocks.MockCommandRunner
	)

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		runner = modelmocks.NewMockCommandRunner(mockctl)
	})

	AfterEach(func() {
		mockctl.Finish()
	})

	ghOutput := `[
		{"databaseId": 101, "name": "CI", "status": "completed", "conclusion": "success", "headBranch": "main", "createdAt": "2026-08-31T10:00:00Z"},
		{"databaseId": 102, "name": "Release", "status": "in_progress", "conclusion": "", "headBranch": "main", "createdAt": "2026-08-31T10:01:00Z"}
	]`

	It("Should list and parse workflow runs", func() {
		runner.EXPECT().ExecuteWithOptions(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, opts model.ExtendedExecOptions) ([]byte, []byte, int, error) {
				Expect(opts.Command).To(Equal("gh"))
				Expect(opts.Args).To(Equal([]string{"run", "list", "--limit", "2", "--json", workflowRunFields}))
				Expect(opts.Timeout).To(Equal(30 * time.Second))

				return []byte(ghOutput), nil, 0, nil
			})

		runs, err := WorkflowRuns(context.Background(), runner, 2, 30*time.Second)
		Expect(err).ToNot(HaveOccurred())
		Expect(runs).To(HaveLen(2))
		Expect(runs[0].ID).To(Equal(int64(101)))
		Expect(runs[0].Name).To(Equal("CI"))
		Expect(runs[0].Conclusion).To(Equal("success"))
		Expect(runs[1].Status).To(Equal("in_progress"))
		Expect(runs[1].CreatedAt).To(Equal(time.Date(2026, 8, 31, 10, 1, 0, 0, time.UTC)))
	})

	It("Should error when gh exits non zero", func() {
		runner.EXPECT().ExecuteWithOptions(gomock.Any(), gomock.Any()).Return(nil, []byte("not authenticated"), 4, nil)

		_, err := WorkflowRuns(context.Background(), runner, 3, time.Second)
		Expect(err).To(MatchError(ContainSubstring("gh exited 4")))
		Expect(err.Error()).To(ContainSubstring("not authenticated"))
	})

	It("Should reject output that is not a list", func() {
		_, err := parseWorkflowRuns([]byte(`{"oops": true}`))
		Expect(err).To(MatchError("unexpected workflow run list output"))
	})
})
