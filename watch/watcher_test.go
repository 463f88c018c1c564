// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Watcher", func() {
	Describe("loadDeployConfig", func() {
		var (
			w       *Watcher
			workDir string
			cfgFile string
		)

		testFacts := map[string]any{"hostname": "build-box"}

		BeforeEach(func() {
			workDir = GinkgoT().TempDir()
			cfgFile = filepath.Join(GinkgoT().TempDir(), "shipit.yaml")

			cfb := []byte(`workdir: ` + workDir + `
commit_message: deploy from [[ Facts["hostname"] ]]
`)
			Expect(os.WriteFile(cfgFile, cfb, 0644)).ToNot(HaveOccurred())

			cfg, err := ParseConfig([]byte(`{}`))
			Expect(err).ToNot(HaveOccurred())

			w, err = New(cfg, WithDeployConfig(cfgFile))
			Expect(err).ToNot(HaveOccurred())
		})

		It("Should load and render the deploy configuration against the facts", func() {
			cfg, err := w.loadDeployConfig(testFacts)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.WorkDir).To(Equal(workDir))
			Expect(cfg.CommitMessage).To(Equal("deploy from build-box"))
		})

		It("Should override the configured workdir", func() {
			other := GinkgoT().TempDir()

			w.cfg.WorkDir = other

			cfg, err := w.loadDeployConfig(testFacts)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.WorkDir).To(Equal(other))
		})
	})
})
