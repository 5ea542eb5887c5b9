package slideshow

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/UoMCS/bigscreen/models"
)

func samplePlan() *models.PlacementPlan {
	return &models.PlacementPlan{
		Seed:        42,
		Slides:      []string{"<p>a</p>", "<p>b</p>", "<p>a</p>"},
		GeneratedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		Reports:     []models.SourceReport{{SourceID: 3, Name: "news", ModuleName: "feed", SlideCount: 2, Duration: 120 * time.Millisecond}},
	}
}

var _ = Describe("MemoryCache", func() {
	var (
		ctx   context.Context
		cache *MemoryCache
		now   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
		cache = NewMemoryCache(time.Minute)
		cache.now = func() time.Time { return now }
	})

	It("misses when empty", func() {
		plan, err := cache.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan).To(BeNil())
	})

	It("expires entries after the ttl", func() {
		plan := samplePlan()
		Expect(cache.Set(ctx, plan)).To(Succeed())

		now = now.Add(59 * time.Second)
		got, err := cache.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeIdenticalTo(plan))

		now = now.Add(time.Second)
		got, err = cache.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})

	It("drops the entry on invalidate", func() {
		Expect(cache.Set(ctx, samplePlan())).To(Succeed())
		Expect(cache.Invalidate(ctx)).To(Succeed())
		got, err := cache.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})
})

var _ = Describe("RedisCache", func() {
	var (
		ctx    context.Context
		server *miniredis.Miniredis
		cache  *RedisCache
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		server, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(server.Close)

		client := redis.NewClient(&redis.Options{Addr: server.Addr()})
		DeferCleanup(client.Close)
		cache = NewRedisCache(client, "bigscreen:plan", 30*time.Second)
	})

	It("misses when the key is absent", func() {
		plan, err := cache.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan).To(BeNil())
	})

	It("stores the plan as JSON with a ttl", func() {
		Expect(cache.Set(ctx, samplePlan())).To(Succeed())
		Expect(server.Exists("bigscreen:plan")).To(BeTrue())
		Expect(server.TTL("bigscreen:plan")).To(Equal(30 * time.Second))

		got, err := cache.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Seed).To(Equal(int64(42)))
		Expect(got.Slides).To(Equal([]string{"<p>a</p>", "<p>b</p>", "<p>a</p>"}))
		Expect(got.GeneratedAt).To(BeTemporally("==", samplePlan().GeneratedAt))
		Expect(got.Reports).To(Equal(samplePlan().Reports))
	})

	It("expires with the ttl", func() {
		Expect(cache.Set(ctx, samplePlan())).To(Succeed())
		server.FastForward(31 * time.Second)
		got, err := cache.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})

	It("deletes the key on invalidate", func() {
		Expect(cache.Set(ctx, samplePlan())).To(Succeed())
		Expect(cache.Invalidate(ctx)).To(Succeed())
		Expect(server.Exists("bigscreen:plan")).To(BeFalse())
	})

	It("reports corrupt entries", func() {
		Expect(server.Set("bigscreen:plan", "not json")).To(Succeed())
		_, err := cache.Get(ctx)
		Expect(err).To(MatchError(ContainSubstring("decoding cached plan")))
	})

	It("reports an unreachable server", func() {
		server.Close()
		_, err := cache.Get(ctx)
		Expect(err).To(HaveOccurred())
	})
})
