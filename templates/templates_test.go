// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package templates

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTemplates(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Templates")
}

var _ = Describe("Templates", func() {
	var env *Env

	BeforeEach(func() {
		env = &Env{
			Facts: map[string]any{
				"os":        "linux",
				"hostname":  "build-box",
				"timestamp": "2026-08-31T10:00:00Z",
			},
			Data: map[string]any{
				"branch":  "main",
				"remote":  "origin",
				"release": 42,
			},
			Environ: map[string]string{
				"USER": "deployer",
			},
		}
	})

	Describe("ResolveTemplateString", func() {
		It("Should return empty string for empty template", func() {
			result, err := ResolveTemplateString("", env)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal(""))
		})

		It("Should return unchanged string without placeholders", func() {
			result, err := ResolveTemplateString("git push", env)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal("git push"))
		})

		It("Should resolve a single expression", func() {
			result, err := ResolveTemplateString("{{ Data.branch }}", env)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal("main"))
		})

		It("Should resolve multiple expressions", func() {
			result, err := ResolveTemplateString("git push {{ Data.remote }} {{ Data.branch }}", env)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal("git push origin main"))
		})

		It("Should resolve facts and environ", func() {
			result, err := ResolveTemplateString("deploy from {{ Facts.hostname }} by {{ Environ.USER }}", env)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal("deploy from build-box by deployer"))
		})

		It("Should resolve multi line commit messages", func() {
			result, err := ResolveTemplateString("release {{ Data.release }}\n\nbuilt on {{ Facts.hostname }}", env)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal("release 42\n\nbuilt on build-box"))
		})

		It("Should support the lookup function", func() {
			result, err := ResolveTemplateString(`{{ lookup("facts.os") }}`, env)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal("linux"))

			result, err = ResolveTemplateString(`{{ lookup("data.missing", "fallback") }}`, env)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal("fallback"))
		})

		It("Should error on invalid expressions", func() {
			_, err := ResolveTemplateString("{{ Data.branch + }}", env)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("expr compile error"))
		})
	})
})
