package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func TestInfoAndDebug(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer

	log, closer, err := New(Options{Level: "info", Writer: &buf})
	g.Expect(err).NotTo(HaveOccurred())
	defer closer.Close()

	log.Info("connected", "addr", "ws://x")
	log.V(1).Info("hidden detail")

	g.Expect(buf.String()).To(ContainSubstring("connected"))
	g.Expect(buf.String()).To(ContainSubstring("addr=ws://x"))
	g.Expect(buf.String()).NotTo(ContainSubstring("hidden detail"))

	buf.Reset()
	log, _, err = New(Options{Level: "debug", Writer: &buf})
	g.Expect(err).NotTo(HaveOccurred())
	log.V(1).Info("shown detail")
	g.Expect(buf.String()).To(ContainSubstring("shown detail"))
}

func TestLogFile(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "marsvis.log")

	log, closer, err := New(Options{File: path})
	g.Expect(err).NotTo(HaveOccurred())
	log.Info("to file")
	g.Expect(closer.Close()).To(Succeed())

	data, err := os.ReadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(data)).To(ContainSubstring("to file"))
}

func TestParseLevel(t *testing.T) {
	g := NewWithT(t)

	for _, s := range []string{"", "info", "DEBUG", "error", "quiet"} {
		_, err := ParseLevel(s)
		g.Expect(err).NotTo(HaveOccurred(), s)
	}
	_, err := ParseLevel("loud")
	g.Expect(err).To(HaveOccurred())
}
