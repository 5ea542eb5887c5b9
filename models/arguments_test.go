package models_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/UoMCS/bigscreen/models"
)

var _ = Describe("Arguments", func() {
	Describe("ParseArguments", func() {
		It("decodes semicolon separated pairs", func() {
			args, err := models.ParseArguments("url=https://example.com/rss;weight=2")
			Expect(err).NotTo(HaveOccurred())
			Expect(args).To(Equal(models.Arguments{"url": "https://example.com/rss", "weight": "2"}))
		})

		It("keeps '=' inside values and trims whitespace", func() {
			args, err := models.ParseArguments(" url = https://example.com/?a=b&c=d ; ;selector=div.item ")
			Expect(err).NotTo(HaveOccurred())
			Expect(args["url"]).To(Equal("https://example.com/?a=b&c=d"))
			Expect(args["selector"]).To(Equal("div.item"))
			Expect(args).To(HaveLen(2))
		})

		It("returns an empty map for an empty string", func() {
			args, err := models.ParseArguments("")
			Expect(err).NotTo(HaveOccurred())
			Expect(args).To(BeEmpty())
		})

		DescribeTable("rejects malformed segments",
			func(encoded string) {
				_, err := models.ParseArguments(encoded)
				Expect(err).To(HaveOccurred())
			},
			Entry("missing separator", "url"),
			Entry("empty key", "=value"),
			Entry("one bad segment among good ones", "a=1;broken;b=2"),
		)
	})

	Describe("Encode", func() {
		It("sorts keys so the encoding is stable", func() {
			args := models.Arguments{"weight": "3", "url": "https://x", "max_age": "48h"}
			Expect(args.Encode()).To(Equal("max_age=48h;url=https://x;weight=3"))
		})

		It("round-trips through ParseArguments", func() {
			args := models.Arguments{"html": "<p>a=b</p>", "weight": "1"}
			decoded, err := models.ParseArguments(args.Encode())
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(args))
		})
	})

	Describe("typed getters", func() {
		args := models.Arguments{
			"weight":  "4",
			"bad":     "four",
			"flag":    "true",
			"max_age": "36h",
			"days":    "3",
			"blank":   "",
		}

		It("reads integers with defaults", func() {
			Expect(args.Int("weight", 1)).To(Equal(4))
			Expect(args.Int("missing", 7)).To(Equal(7))
			Expect(args.Int("blank", 9)).To(Equal(9))
			_, err := args.Int("bad", 1)
			Expect(err).To(MatchError(ContainSubstring("not an integer")))
		})

		It("reads booleans", func() {
			Expect(args.Bool("flag", false)).To(BeTrue())
			Expect(args.Bool("missing", true)).To(BeTrue())
			_, err := args.Bool("bad", false)
			Expect(err).To(HaveOccurred())
		})

		It("reads durations and bare day counts", func() {
			Expect(args.Duration("max_age", 0)).To(Equal(36 * time.Hour))
			Expect(args.Duration("days", 0)).To(Equal(72 * time.Hour))
			Expect(args.Duration("missing", time.Minute)).To(Equal(time.Minute))
			_, err := args.Duration("bad", 0)
			Expect(err).To(HaveOccurred())
		})

		It("falls back for blank strings", func() {
			Expect(args.String("blank", "section")).To(Equal("section"))
			Expect(args.String("flag", "x")).To(Equal("true"))
		})
	})
})

var _ = Describe("CandidateSlide", func() {
	DescribeTable("EffectiveWeight floors non-positive weights",
		func(weight, expected int) {
			Expect(models.CandidateSlide{DuplicateWeight: weight}.EffectiveWeight()).To(Equal(expected))
		},
		Entry("negative", -3, 1),
		Entry("zero", 0, 1),
		Entry("one", 1, 1),
		Entry("five", 5, 5),
	)
})
