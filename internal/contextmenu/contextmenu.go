// Package contextmenu builds the per-template menu and handles clicks on it.
package contextmenu

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/quicksend"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

const (
	// ParentID is the id of the top-level item.
	ParentID = "hooky-parent"
	// Prefix precedes the template id in child item ids.
	Prefix = "hooky-"
	// ParentTitle is the label of the top-level item.
	ParentTitle = "Hooky"
	// UntitledName labels templates without a name.
	UntitledName = "Untitled"
)

// Contexts are the page contexts the menu applies to.
var Contexts = []string{"page", "selection", "link", "image"}

// Item is one menu entry.
type Item struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parentId,omitempty"`
	Title    string   `json:"title"`
	Contexts []string `json:"contexts"`
}

// Build returns the full menu for templates: nothing for an empty list,
// otherwise the parent followed by one child per template in order.
func Build(templates []store.Template) []Item {
	if len(templates) == 0 {
		return []Item{}
	}
	items := make([]Item, 0, len(templates)+1)
	items = append(items, Item{ID: ParentID, Title: ParentTitle, Contexts: Contexts})
	for _, tpl := range templates {
		items = append(items, Item{
			ID:       ItemID(tpl.ID),
			ParentID: ParentID,
			Title:    tpl.DisplayName(UntitledName),
			Contexts: Contexts,
		})
	}
	return items
}

// ItemID is the menu id for a template.
func ItemID(templateID string) string {
	return Prefix + templateID
}

// TemplateID extracts the template id from a child item id.
func TemplateID(itemID string) (string, bool) {
	if itemID == ParentID || !strings.HasPrefix(itemID, Prefix) {
		return "", false
	}
	return strings.TrimPrefix(itemID, Prefix), true
}

// Menu holds the current item set; Rebuild replaces it wholesale.
type Menu struct {
	mu    sync.RWMutex
	items []Item
}

// Rebuild removes every item and builds the menu again.
func (m *Menu) Rebuild(templates []store.Template) int {
	items := Build(templates)
	m.mu.Lock()
	m.items = items
	m.mu.Unlock()
	return len(items)
}

// Items returns a copy of the current items.
func (m *Menu) Items() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Item{}, m.items...)
}

// StoreLoader reads the current document.
type StoreLoader interface {
	Load(ctx context.Context) (*store.Store, error)
}

// Indicator shows the result of a click.
type Indicator interface {
	ShowResultIndicator(success bool)
}

// Click describes what a click did.
type Click struct {
	Dispatched bool            `json:"dispatched"`
	TemplateID string          `json:"templateId,omitempty"`
	Result     *webhook.Result `json:"result,omitempty"`
}

// Handler dispatches the template behind a clicked item.
type Handler struct {
	loader     StoreLoader
	pages      quicksend.PageInfo
	dispatcher quicksend.Dispatcher
	log        *zap.Logger
}

// NewHandler creates a click handler.
func NewHandler(loader StoreLoader, pages quicksend.PageInfo, dispatcher quicksend.Dispatcher, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{loader: loader, pages: pages, dispatcher: dispatcher, log: log}
}

// HandleClick ignores the parent and foreign items, and templates that are
// missing or have no URL. Otherwise it dispatches with the tab's page context
// and shows the result on indicator.
func (h *Handler) HandleClick(ctx context.Context, itemID string, tab *pagecontext.Tab, indicator Indicator) (Click, error) {
	templateID, ok := TemplateID(itemID)
	if !ok {
		return Click{}, nil
	}

	s, err := h.loader.Load(ctx)
	if err != nil {
		return Click{}, fmt.Errorf("load store: %w", err)
	}
	tpl := s.Template(templateID)
	if tpl == nil || !tpl.Configured() {
		h.log.Debug("menu click without usable template", zap.String("template", templateID))
		return Click{TemplateID: templateID}, nil
	}

	result := h.dispatcher.Dispatch(ctx, tpl.WebhookConfig(), h.pages.PageContext(ctx, tab).Vars())
	if indicator != nil {
		indicator.ShowResultIndicator(result.OK)
	}
	return Click{Dispatched: true, TemplateID: templateID, Result: &result}, nil
}
