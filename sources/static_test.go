package sources_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/UoMCS/bigscreen/models"
	"github.com/UoMCS/bigscreen/sources"
)

var _ = Describe("StaticModule", func() {
	var module *sources.StaticModule

	BeforeEach(func() {
		module = sources.NewStaticModule(sources.NewContentCleaner())
	})

	It("produces exactly one sanitised slide from inline markup", func() {
		slides, err := module.GenerateSlides(context.Background(), models.Arguments{
			"html":   `<h2>Welcome</h2><script>alert(1)</script>`,
			"weight": "4",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(slides).To(HaveLen(1))
		Expect(slides[0].Body).To(ContainSubstring("<h2>Welcome</h2>"))
		Expect(slides[0].Body).NotTo(ContainSubstring("script"))
		Expect(slides[0].DuplicateWeight).To(Equal(4))
	})

	It("reads markup from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "notice.html")
		Expect(os.WriteFile(path, []byte("<p>Lab closed on Friday</p>"), 0o600)).To(Succeed())

		slides, err := module.GenerateSlides(context.Background(), models.Arguments{"path": path})
		Expect(err).NotTo(HaveOccurred())
		Expect(slides).To(HaveLen(1))
		Expect(slides[0].Body).To(ContainSubstring("Lab closed on Friday"))
		Expect(slides[0].DuplicateWeight).To(Equal(1))
	})

	DescribeTable("rejects bad arguments",
		func(args models.Arguments) {
			_, err := module.GenerateSlides(context.Background(), args)
			Expect(err).To(HaveOccurred())
		},
		Entry("nothing to show", models.Arguments{}),
		Entry("both html and path", models.Arguments{"html": "<p>x</p>", "path": "/tmp/x.html"}),
		Entry("missing file", models.Arguments{"path": "/nonexistent/slide.html"}),
		Entry("non-integer weight", models.Arguments{"html": "<p>x</p>", "weight": "heavy"}),
	)
})
