package memgate_test

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memgate/membridge/pkg/memgate"
	"github.com/memgate/membridge/pkg/memgate/memgatetest"
)

const (
	testSecret = "s3cret"
	testOrg    = "acme"
	testAgent  = "support"
)

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		server *memgatetest.Server
		creds  memgate.Credentials
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = memgatetest.New(testSecret)
		baseURL, err := server.Start()
		Expect(err).ToNot(HaveOccurred())
		creds = memgate.Credentials{
			BaseURL:      baseURL,
			SharedSecret: testSecret,
			OrgID:        testOrg,
			AgentID:      testAgent,
		}
	})

	AfterEach(func() {
		Expect(server.Close()).To(Succeed())
	})

	Describe("construction", func() {
		It("strips a trailing slash from the base URL", func() {
			creds.BaseURL += "/"
			client := memgate.NewClient(creds)
			Expect(client.BaseURL).ToNot(HaveSuffix("/"))
			_, err := client.List(ctx, 10, false)
			Expect(err).ToNot(HaveOccurred())
		})

		It("sends auth, content-type and tenancy headers on every call", func() {
			client := memgate.NewClient(creds)
			_, err := client.List(ctx, 10, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(server.LastHeader("Authorization")).To(Equal("Bearer " + testSecret))
			Expect(server.LastHeader("Content-Type")).To(Equal("application/json"))
			Expect(server.LastHeader("X-Org-Id")).To(Equal(testOrg))
			Expect(server.LastHeader("X-Agent-Id")).To(Equal(testAgent))
		})

		It("applies extra headers in order, skipping empty entries", func() {
			creds.ExtraHeaders = []memgate.Header{
				{Name: "X-Trace", Value: "first"},
				{Name: "", Value: "nameless"},
				{Name: "X-Empty", Value: ""},
				{Name: "X-Trace", Value: "second"},
			}
			client := memgate.NewClient(creds)
			_, err := client.List(ctx, 10, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(server.LastHeader("X-Trace")).To(Equal("second"))
			Expect(server.LastHeader("X-Empty")).To(BeEmpty())
		})
	})

	Describe("round trips", func() {
		var client *memgate.Client

		BeforeEach(func() {
			client = memgate.NewClient(creds)
		})

		It("adds and lists items for the tenant", func() {
			created, err := client.Add(ctx, memgate.AddRequest{
				UserID: "u1",
				Scope:  "prefs",
				Text:   "No pings after 22:00.",
				Tags:   []string{"quiet-hours", "night"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(created).To(HaveLen(1))
			Expect(created[0].ID).ToNot(BeEmpty())

			items, err := client.List(ctx, 20, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Text).To(Equal("No pings after 22:00."))
			Expect(items[0].Payload.Tags).To(Equal([]string{"quiet-hours", "night"}))
		})

		It("hides soft-deleted items unless asked for them", func() {
			server.Seed(testOrg, testAgent,
				memgate.MemoryItem{Text: "live"},
				memgate.MemoryItem{Text: "soft", Payload: memgate.Payload{Deleted: true}},
			)
			visible, err := client.List(ctx, 20, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(visible).To(HaveLen(1))

			all, err := client.List(ctx, 20, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("soft-deletes a batch", func() {
			server.Seed(testOrg, testAgent,
				memgate.MemoryItem{ID: "m1", Text: "a"},
				memgate.MemoryItem{ID: "m2", Text: "b"},
			)
			Expect(client.DeleteBatch(ctx, []string{"m1", "m2"}, false)).To(Succeed())
			for _, item := range server.Items(testOrg, testAgent) {
				Expect(item.Payload.Deleted).To(BeTrue())
			}
		})

		It("hard-deletes a batch when told to", func() {
			server.Seed(testOrg, testAgent, memgate.MemoryItem{ID: "m1", Text: "a"})
			Expect(client.DeleteBatch(ctx, []string{"m1"}, true)).To(Succeed())
			Expect(server.Items(testOrg, testAgent)).To(BeEmpty())
		})

		It("opens items by identifier", func() {
			server.Seed(testOrg, testAgent,
				memgate.MemoryItem{ID: "m1", Text: "a"},
				memgate.MemoryItem{ID: "m2", Text: "b"},
			)
			items, err := client.Open(ctx, []string{"m2"})
			Expect(err).ToNot(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Text).To(Equal("b"))
		})

		It("patches an item", func() {
			server.Seed(testOrg, testAgent, memgate.MemoryItem{ID: "m1", Text: "old"})
			text := "new"
			item, err := client.Update(ctx, "m1", memgate.UpdateRequest{Text: &text})
			Expect(err).ToNot(HaveOccurred())
			Expect(item.Text).To(Equal("new"))
		})

		It("searches stored text", func() {
			server.Seed(testOrg, testAgent,
				memgate.MemoryItem{Text: "likes espresso"},
				memgate.MemoryItem{Text: "hates mornings"},
			)
			items, err := client.SearchText(ctx, "espresso", 20, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(items).To(HaveLen(1))

			hits, err := client.Search(ctx, memgate.SearchQuery{Query: "espresso", K: 5})
			Expect(err).ToNot(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].Score).To(BeNumerically(">", 0))
		})

		It("deletes a single item", func() {
			server.Seed(testOrg, testAgent, memgate.MemoryItem{ID: "m1", Text: "a"})
			Expect(client.Delete(ctx, "m1", false)).To(Succeed())
			Expect(server.Items(testOrg, testAgent)[0].Payload.Deleted).To(BeTrue())
		})
	})

	Describe("failures", func() {
		It("wraps non-success statuses in a RemoteError", func() {
			server.ForceStatus(500)
			_, err := memgate.NewClient(creds).List(ctx, 10, false)
			var remoteErr *memgate.RemoteError
			Expect(errors.As(err, &remoteErr)).To(BeTrue())
			Expect(remoteErr.StatusCode).To(Equal(500))
			Expect(remoteErr.Op).To(Equal("list"))
		})

		It("reports an auth failure as a RemoteError", func() {
			creds.SharedSecret = "wrong"
			_, err := memgate.NewClient(creds).List(ctx, 10, false)
			var remoteErr *memgate.RemoteError
			Expect(errors.As(err, &remoteErr)).To(BeTrue())
			Expect(remoteErr.StatusCode).To(Equal(401))
		})

		It("reports a 404 from the update endpoint", func() {
			text := "x"
			_, err := memgate.NewClient(creds).Update(ctx, "missing", memgate.UpdateRequest{Text: &text})
			var remoteErr *memgate.RemoteError
			Expect(errors.As(err, &remoteErr)).To(BeTrue())
			Expect(remoteErr.StatusCode).To(Equal(404))
		})

		It("wraps a malformed 2xx body in a RemoteError", func() {
			app := fiber.New(fiber.Config{DisableStartupMessage: true})
			app.Get("/api/v1/mem/list", func(c *fiber.Ctx) error {
				return c.SendString("not json at all")
			})
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).ToNot(HaveOccurred())
			go func() {
				_ = app.Listener(ln)
			}()
			defer app.Shutdown()

			creds.BaseURL = "http://" + ln.Addr().String()
			_, err = memgate.NewClient(creds).List(ctx, 10, false)
			var remoteErr *memgate.RemoteError
			Expect(errors.As(err, &remoteErr)).To(BeTrue())
			Expect(remoteErr.Op).To(Equal("list"))
			Expect(remoteErr.Unwrap()).To(HaveOccurred())
		})

		It("surfaces transport failures with the wrapped cause", func() {
			creds.BaseURL = "http://127.0.0.1:1"
			_, err := memgate.NewClient(creds).List(ctx, 10, false)
			var remoteErr *memgate.RemoteError
			Expect(errors.As(err, &remoteErr)).To(BeTrue())
			Expect(remoteErr.Unwrap()).To(HaveOccurred())
		})
	})
})
