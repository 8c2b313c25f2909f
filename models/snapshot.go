package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SnapshotVersion is the schema version written for ingredient and extra snapshots.
const SnapshotVersion = 1

var ErrSnapshotVersion = errors.New("unsupported ingredient snapshot")

// Ingredient is one line of an item's recipe as it was when the item was billed.
type Ingredient struct {
	Name     string          `json:"ingredient"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// Ingredients is stored as {"v":1,"items":[...]}. Rows written in any other
// shape are rejected on scan; converting them is a migration job.
type Ingredients []Ingredient

type ingredientsEnvelope struct {
	Version int          `json:"v"`
	Items   []Ingredient `json:"items"`
}

func (in Ingredients) Value() (driver.Value, error) {
	items := []Ingredient(in)
	if items == nil {
		items = []Ingredient{}
	}
	b, err := json.Marshal(ingredientsEnvelope{Version: SnapshotVersion, Items: items})
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (in *Ingredients) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*in = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrSnapshotVersion, src)
	}
	if len(raw) == 0 {
		*in = nil
		return nil
	}

	var env ingredientsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotVersion, err)
	}
	if env.Version != SnapshotVersion {
		return fmt.Errorf("%w: version %d", ErrSnapshotVersion, env.Version)
	}
	*in = Ingredients(env.Items)
	return nil
}
