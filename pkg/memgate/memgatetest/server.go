// Package memgatetest provides an in-memory memgate service double. It
// implements the documented wire contract closely enough for client and
// bridge tests, and backs the CLI stub command for local development.
package memgatetest

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/memgate/membridge/pkg/memgate"
)

type Server struct {
	app    *fiber.App
	ln     net.Listener
	secret string

	mu          sync.Mutex
	tenants     map[string][]*memgate.MemoryItem
	calls       map[string]int
	lastHeaders map[string][]string
	forceStatus int
}

// New builds the fake service. Requests must carry the given bearer
// secret plus X-Org-Id and X-Agent-Id headers.
func New(secret string) *Server {
	s := &Server{
		secret:  secret,
		tenants: map[string][]*memgate.MemoryItem{},
		calls:   map[string]int{},
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(s.tenancy)

	app.Get("/api/v1/mem/list", s.list)
	app.Post("/api/v1/mem/add", s.add)
	app.Post("/api/v1/mem/delete/batch", s.deleteBatch)
	app.Get("/api/v1/mem/search", s.search)
	app.Get("/api/v1/mem/search/text", s.searchText)
	app.Post("/api/v1/mem/open", s.open)
	app.Patch("/api/v1/mem/:id", s.update)
	app.Delete("/api/v1/mem/:id", s.deleteOne)

	s.app = app
	return s
}

// Start serves on a random loopback port and returns the base URL.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	s.ln = ln
	go func() {
		_ = s.app.Listener(ln)
	}()
	return "http://" + ln.Addr().String(), nil
}

// Serve blocks serving on the given address. Used by the CLI stub.
func (s *Server) Serve(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Close() error {
	return s.app.Shutdown()
}

// Calls returns how many times an operation handler ran. Operations:
// list, add, delete_batch, search, search_text, open, update, delete.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// LastHeader returns a header of the most recent authenticated request.
func (s *Server) LastHeader(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.lastHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// ForceStatus makes every subsequent handler answer with the given status
// and an empty body. Zero restores normal behavior.
func (s *Server) ForceStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceStatus = code
}

// Seed stores items for a tenant directly, bypassing the add handler.
func (s *Server) Seed(orgID, agentID string, items ...memgate.MemoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantKey(orgID, agentID)
	for i := range items {
		item := items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		s.tenants[key] = append(s.tenants[key], &item)
	}
}

// Items returns a tenant's stored items in insertion order, soft-deleted
// ones included.
func (s *Server) Items(orgID, agentID string) []memgate.MemoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.tenants[tenantKey(orgID, agentID)]
	items := make([]memgate.MemoryItem, 0, len(stored))
	for _, item := range stored {
		items = append(items, *item)
	}
	return items
}

func tenantKey(orgID, agentID string) string {
	return orgID + "/" + agentID
}

func (s *Server) tenancy(c *fiber.Ctx) error {
	token := strings.TrimPrefix(strings.TrimSpace(c.Get("Authorization")), "Bearer ")
	if token != s.secret {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "invalid token"})
	}
	orgID := c.Get("X-Org-Id")
	agentID := c.Get("X-Agent-Id")
	if orgID == "" || agentID == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"detail": "missing tenancy headers"})
	}

	s.mu.Lock()
	s.lastHeaders = c.GetReqHeaders()
	forced := s.forceStatus
	s.mu.Unlock()

	if forced != 0 {
		return c.SendStatus(forced)
	}

	c.Locals("tenant", tenantKey(orgID, agentID))
	return c.Next()
}

func (s *Server) record(c *fiber.Ctx, op string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return c.Locals("tenant").(string)
}

func itemViews(items []*memgate.MemoryItem) []memgate.MemoryItem {
	out := make([]memgate.MemoryItem, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}

func (s *Server) list(c *fiber.Ctx) error {
	tenant := s.record(c, "list")
	limit := c.QueryInt("limit", 20)
	includeDeleted := c.QueryBool("include_deleted", false)

	s.mu.Lock()
	defer s.mu.Unlock()
	selected := []*memgate.MemoryItem{}
	for _, item := range s.tenants[tenant] {
		if item.Payload.Deleted && !includeDeleted {
			continue
		}
		selected = append(selected, item)
		if len(selected) == limit {
			break
		}
	}
	return c.JSON(fiber.Map{"items": itemViews(selected)})
}

func (s *Server) add(c *fiber.Ctx) error {
	tenant := s.record(c, "add")

	var req memgate.AddRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": err.Error()})
	}
	scope := req.Scope
	if scope == "" {
		scope = "facts"
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	item := &memgate.MemoryItem{
		ID:   uuid.NewString(),
		Text: req.Text,
		Payload: memgate.Payload{
			UserID: req.UserID,
			Scope:  scope,
			Tags:   tags,
		},
	}

	s.mu.Lock()
	s.tenants[tenant] = append(s.tenants[tenant], item)
	s.mu.Unlock()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"items": []memgate.MemoryItem{*item}})
}

func (s *Server) deleteBatch(c *fiber.Ctx) error {
	tenant := s.record(c, "delete_batch")

	var req struct {
		IDs  []string `json:"ids"`
		Hard bool     `json:"hard"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": err.Error()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range req.IDs {
		wanted[id] = true
	}
	kept := []*memgate.MemoryItem{}
	for _, item := range s.tenants[tenant] {
		if !wanted[item.ID] {
			kept = append(kept, item)
			continue
		}
		if req.Hard {
			continue
		}
		item.Payload.Deleted = true
		kept = append(kept, item)
	}
	s.tenants[tenant] = kept

	return c.JSON(fiber.Map{"ok": true, "ids": req.IDs, "hard": req.Hard})
}

func (s *Server) search(c *fiber.Ctx) error {
	tenant := s.record(c, "search")
	q := strings.ToLower(c.Query("q"))
	k := c.QueryInt("k", 6)
	scope := c.Query("scope")

	s.mu.Lock()
	defer s.mu.Unlock()
	hits := []memgate.MemoryHit{}
	for _, item := range s.tenants[tenant] {
		if item.Payload.Deleted {
			continue
		}
		if scope != "" && item.Payload.Scope != scope {
			continue
		}
		if !strings.Contains(strings.ToLower(item.Text), q) {
			continue
		}
		// Crude stand-in for semantic scoring: full match over weak match.
		hits = append(hits, memgate.MemoryHit{
			ID:      item.ID,
			Score:   float64(len(q)+1) / float64(len(item.Text)+1),
			Text:    item.Text,
			Payload: item.Payload,
		})
		if len(hits) == k {
			break
		}
	}
	return c.JSON(fiber.Map{"hits": hits})
}

func (s *Server) searchText(c *fiber.Ctx) error {
	tenant := s.record(c, "search_text")
	q := strings.ToLower(c.Query("q"))
	limit := c.QueryInt("limit", 20)
	includeDeleted := c.QueryBool("include_deleted", false)

	s.mu.Lock()
	defer s.mu.Unlock()
	selected := []*memgate.MemoryItem{}
	for _, item := range s.tenants[tenant] {
		if item.Payload.Deleted && !includeDeleted {
			continue
		}
		if !strings.Contains(strings.ToLower(item.Text), q) {
			continue
		}
		selected = append(selected, item)
		if len(selected) == limit {
			break
		}
	}
	return c.JSON(fiber.Map{"items": itemViews(selected)})
}

func (s *Server) open(c *fiber.Ctx) error {
	tenant := s.record(c, "open")

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": err.Error()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	selected := []*memgate.MemoryItem{}
	for _, id := range req.IDs {
		for _, item := range s.tenants[tenant] {
			if item.ID == id {
				selected = append(selected, item)
				break
			}
		}
	}
	return c.JSON(fiber.Map{"items": itemViews(selected)})
}

func (s *Server) find(tenant, id string) *memgate.MemoryItem {
	for _, item := range s.tenants[tenant] {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (s *Server) update(c *fiber.Ctx) error {
	tenant := s.record(c, "update")

	var req memgate.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": err.Error()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.find(tenant, c.Params("id"))
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": fmt.Sprintf("memory %s not found", c.Params("id"))})
	}
	if req.Text != nil {
		item.Text = *req.Text
	}
	if req.Tags != nil {
		item.Payload.Tags = req.Tags
	}
	if req.Scope != nil {
		item.Payload.Scope = *req.Scope
	}
	if req.Deleted != nil {
		item.Payload.Deleted = *req.Deleted
	}
	return c.JSON(*item)
}

func (s *Server) deleteOne(c *fiber.Ctx) error {
	tenant := s.record(c, "delete")
	hard := c.QueryBool("hard", false)

	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.find(tenant, c.Params("id"))
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": fmt.Sprintf("memory %s not found", c.Params("id"))})
	}
	if hard {
		kept := []*memgate.MemoryItem{}
		for _, stored := range s.tenants[tenant] {
			if stored.ID != item.ID {
				kept = append(kept, stored)
			}
		}
		s.tenants[tenant] = kept
	} else {
		item.Payload.Deleted = true
	}
	return c.JSON(fiber.Map{"ok": true})
}
