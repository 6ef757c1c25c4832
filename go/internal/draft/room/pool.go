package room

import "github.com/mcdev12/corpsdraft/go/internal/models"

// Pool is the shrinking set of captions still available in a draft.
// Items keep the order they had in the catalog.
type Pool struct {
	items map[string]models.Caption
	order []string
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{items: make(map[string]models.Caption)}
}

// Initialize replaces the pool contents with catalog. Duplicate ids keep the
// first occurrence.
func (p *Pool) Initialize(catalog []models.Caption) {
	p.items = make(map[string]models.Caption, len(catalog))
	p.order = make([]string, 0, len(catalog))
	for _, c := range catalog {
		if _, ok := p.items[c.ID]; ok {
			continue
		}
		p.items[c.ID] = c
		p.order = append(p.order, c.ID)
	}
}

// Remove takes the caption with id out of the pool. The boolean is false when
// the id is not present, which callers treat as a no-op pick.
func (p *Pool) Remove(id string) (models.Caption, bool) {
	c, ok := p.items[id]
	if !ok {
		return models.Caption{}, false
	}
	delete(p.items, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return c, true
}

// Remaining returns a copy of the captions left, in catalog order.
func (p *Pool) Remaining() []models.Caption {
	out := make([]models.Caption, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.items[id])
	}
	return out
}

// Len returns the number of captions left.
func (p *Pool) Len() int { return len(p.order) }

// IsEmpty reports whether every caption has been picked.
func (p *Pool) IsEmpty() bool { return len(p.order) == 0 }

// Reset empties the pool.
func (p *Pool) Reset() {
	p.items = make(map[string]models.Caption)
	p.order = nil
}
