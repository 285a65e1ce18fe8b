// Package command defines the closed set of operations an utterance can be
// routed to. Every variant implements Command; the set is sealed so a type
// switch over it can be checked for completeness in tests.
package command

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Operation names as exposed to the language model.
const (
	NameAdd            = "add_ingredient"
	NameList           = "get_ingredient_list"
	NameCheckExpiring  = "check_expiring_ingredients"
	NameDelete         = "delete_ingredient"
	NameReduceQuantity = "reduce_ingredient_quantity"
	NameUpdate         = "update_ingredient"

	NamePing      = "ping"
	NameHelp      = "help"
	NameListTools = "tools"
)

type Command interface {
	Name() string
	sealed()
}

// Add creates a record. A nil Quantity defaults to 1.
type Add struct {
	Name      string
	Quantity  *decimal.Decimal
	Unit      string
	ExpiresAt string
	Location  string
	Notes     string
}

type List struct{}

// CheckExpiring reports records expiring within Days. A nil Days uses the
// configured default threshold.
type CheckExpiring struct {
	Days *int
}

type Delete struct {
	Identifier string
}

type ReduceQuantity struct {
	Identifier string
	Delta      decimal.Decimal
}

// Update overwrites only the non-nil fields.
type Update struct {
	Identifier string
	Name       *string
	Quantity   *decimal.Decimal
	Unit       *string
	ExpiresAt  *string
	Location   *string
	Notes      *string
}

// HasChanges reports whether at least one field is set.
func (u Update) HasChanges() bool {
	return u.Name != nil || u.Quantity != nil || u.Unit != nil ||
		u.ExpiresAt != nil || u.Location != nil || u.Notes != nil
}

// Literal commands, resolved without the language model.
type (
	Ping      struct{}
	Help      struct{}
	ListTools struct{}
)

func (Add) Name() string            { return NameAdd }
func (List) Name() string           { return NameList }
func (CheckExpiring) Name() string  { return NameCheckExpiring }
func (Delete) Name() string         { return NameDelete }
func (ReduceQuantity) Name() string { return NameReduceQuantity }
func (Update) Name() string         { return NameUpdate }
func (Ping) Name() string           { return NamePing }
func (Help) Name() string           { return NameHelp }
func (ListTools) Name() string      { return NameListTools }

func (Add) sealed()            {}
func (List) sealed()           {}
func (CheckExpiring) sealed()  {}
func (Delete) sealed()         {}
func (ReduceQuantity) sealed() {}
func (Update) sealed()         {}
func (Ping) sealed()           {}
func (Help) sealed()           {}
func (ListTools) sealed()      {}

// All returns one zero value of every variant.
func All() []Command {
	return []Command{
		Add{}, List{}, CheckExpiring{}, Delete{}, ReduceQuantity{}, Update{},
		Ping{}, Help{}, ListTools{},
	}
}

// Literal returns the literal command for text, matched case-insensitively
// after trimming, or false when text is not a literal.
func Literal(text string) (Command, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case NamePing:
		return Ping{}, true
	case NameHelp:
		return Help{}, true
	case NameListTools:
		return ListTools{}, true
	}
	return nil, false
}
