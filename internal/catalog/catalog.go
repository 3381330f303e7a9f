package catalog

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Restaurant is one venue of the curated list.
type Restaurant struct {
	ID        int      `json:"id"`
	Nom       string   `json:"nom"`
	Adresse   string   `json:"adresse"`
	Type      string   `json:"type"`
	Note      *float64 `json:"note"`
	Horaires  *string  `json:"horaires"`
	Site      *string  `json:"site"`
	Instagram *string  `json:"instagram"`
	Photo     *string  `json:"photo"`
	Quartier  string   `json:"quartier"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
}

type data struct {
	Restaurants []Restaurant `json:"restaurants"`
}

// Catalog is the read-only restaurant dataset, in its published order.
type Catalog struct {
	restaurants []Restaurant
	byID        map[int]int
}

func New(restaurants []Restaurant) *Catalog {
	c := &Catalog{
		restaurants: make([]Restaurant, 0, len(restaurants)),
		byID:        make(map[int]int, len(restaurants)),
	}
	for _, r := range restaurants {
		if _, dup := c.byID[r.ID]; dup {
			continue
		}
		c.byID[r.ID] = len(c.restaurants)
		c.restaurants = append(c.restaurants, r)
	}
	return c
}

func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open catalog %s", path)
	}
	defer f.Close()

	return Read(f)
}

func Read(r io.Reader) (*Catalog, error) {
	var d data
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, errors.Wrap(err, "could not decode catalog")
	}
	return New(d.Restaurants), nil
}

func (c *Catalog) All() []Restaurant {
	out := make([]Restaurant, len(c.restaurants))
	copy(out, c.restaurants)
	return out
}

func (c *Catalog) Len() int {
	return len(c.restaurants)
}

func (c *Catalog) ByID(id int) (Restaurant, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Restaurant{}, false
	}
	return c.restaurants[i], true
}

// OrderedByRanking returns every restaurant, ranked ones first in ranking
// order. Unknown and repeated IDs are skipped; unranked restaurants follow
// in catalog order.
func (c *Catalog) OrderedByRanking(ranking []int) []Restaurant {
	out := make([]Restaurant, 0, len(c.restaurants))
	seen := make(map[int]bool, len(ranking))

	for _, id := range ranking {
		i, ok := c.byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c.restaurants[i])
	}

	for _, r := range c.restaurants {
		if !seen[r.ID] {
			out = append(out, r)
		}
	}

	return out
}

// Done resolves visited IDs to restaurants, ignoring unknown ones.
func (c *Catalog) Done(ids []int) []Restaurant {
	out := make([]Restaurant, 0, len(ids))
	seen := make(map[int]bool, len(ids))

	for _, id := range ids {
		i, ok := c.byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c.restaurants[i])
	}

	return out
}
