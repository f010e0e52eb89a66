package servecmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sparky/cmd/sparky/servecmder"
)

var _ = Describe("serve command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("GEMINI_API_KEY", "")
	})

	run := func(args ...string) error {
		cmd := servecmder.NewServeCmd("test")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.ExecuteContext(context.Background())
	}

	It("requires a gemini api key", func() {
		err := run("--config", filepath.Join(tmpDir, "missing.toml"))
		Expect(err).To(MatchError(ContainSubstring("GEMINI_API_KEY is not set")))
	})

	It("reports an unreadable config file", func() {
		path := filepath.Join(tmpDir, "sparky.toml")
		Expect(os.WriteFile(path, []byte("[server\nlisten = "), 0o644)).To(Succeed())

		err := run("--config", path)
		Expect(err).To(MatchError(ContainSubstring("could not load config")))
	})

	It("rejects positional arguments", func() {
		Expect(run("extra")).To(HaveOccurred())
	})
})
