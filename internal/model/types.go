// Package model defines the core NLU data types.
package model

import "time"

// Intent is the classified purpose of an utterance.
type Intent string

const (
	IntentSearch          Intent = "search"
	IntentCount           Intent = "count"
	IntentValue           Intent = "value"
	IntentPriceRange      Intent = "price_range"
	IntentRepair          Intent = "repair"
	IntentPurchaseHistory Intent = "purchase_history"
	IntentLogAcquisition  Intent = "log_acquisition"
	IntentUnknown         Intent = "unknown"
)

// Intents lists every classifiable intent in a stable order. The
// statistical model uses the position as its label index, so the order
// must not change between training and prediction.
var Intents = []Intent{
	IntentSearch,
	IntentCount,
	IntentValue,
	IntentPriceRange,
	IntentRepair,
	IntentPurchaseHistory,
	IntentLogAcquisition,
}

// Valid reports whether i is a member of the closed intent enumeration.
func (i Intent) Valid() bool {
	switch i {
	case IntentSearch, IntentCount, IntentValue, IntentPriceRange,
		IntentRepair, IntentPurchaseHistory, IntentLogAcquisition, IntentUnknown:
		return true
	}
	return false
}

// AcquisitionType is the means by which an item entered the inventory.
type AcquisitionType string

const (
	AcquisitionPurchased AcquisitionType = "purchased"
	AcquisitionGift      AcquisitionType = "gift"
	AcquisitionTrade     AcquisitionType = "trade"
	AcquisitionFound     AcquisitionType = "found"
	AcquisitionBorrowed  AcquisitionType = "borrowed"
	AcquisitionInherited AcquisitionType = "inherited"
	AcquisitionMade      AcquisitionType = "made"
	AcquisitionWon       AcquisitionType = "won"
	AcquisitionLost      AcquisitionType = "lost"
	AcquisitionDisposed  AcquisitionType = "disposed"
)

// AcquisitionTypes lists all supported acquisition types.
var AcquisitionTypes = []AcquisitionType{
	AcquisitionPurchased,
	AcquisitionGift,
	AcquisitionTrade,
	AcquisitionFound,
	AcquisitionBorrowed,
	AcquisitionInherited,
	AcquisitionMade,
	AcquisitionWon,
	AcquisitionLost,
	AcquisitionDisposed,
}

// Valid reports whether t is a recognized acquisition type.
func (t AcquisitionType) Valid() bool {
	for _, a := range AcquisitionTypes {
		if t == a {
			return true
		}
	}
	return false
}

// Utterance is one raw user input. Immutable once recorded.
type Utterance struct {
	Text      string    `json:"text"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// Item is a read copy of the fields the core needs to answer a query.
// The storage collaborator owns the full record; the core only ever
// holds the identifier and this projection.
type Item struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category,omitempty"`
	Location        string  `json:"location,omitempty"`
	Condition       string  `json:"condition,omitempty"`
	AcquisitionType string  `json:"acquisition_type,omitempty"`
	SourceDetails   string  `json:"source_details,omitempty"`
	Price           float64 `json:"price,omitempty"`
	PurchaseDate    string  `json:"purchase_date,omitempty"`
}

// Repair is a read copy of a repair record joined with its item name.
type Repair struct {
	ID          string  `json:"id"`
	ItemID      string  `json:"item_id"`
	ItemName    string  `json:"item_name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Cost        float64 `json:"cost,omitempty"`
	RepairDate  string  `json:"repair_date,omitempty"`
}

// QueryResult is the shaped response an intent handler produces.
// Only the fields relevant to the handled intent are populated.
type QueryResult struct {
	Message string   `json:"message"`
	Items   []Item   `json:"items,omitempty"`
	Count   int      `json:"count,omitempty"`
	Total   float64  `json:"total,omitempty"`
	Repairs []Repair `json:"repairs,omitempty"`
}

// AcquisitionRecord is the structured record a completed acquisition
// dialogue emits for persistence.
type AcquisitionRecord struct {
	Type      AcquisitionType   `json:"type"`
	Item      string            `json:"item"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
}
