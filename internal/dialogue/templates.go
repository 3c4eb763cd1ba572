// Package dialogue drives multi-turn acquisition conversations and the
// short-term context used to resolve follow-up questions.
package dialogue

import "packrat/internal/model"

// Field names collected during an acquisition dialogue.
const (
	FieldPrice         = "price"
	FieldLocation      = "location"
	FieldDate          = "date"
	FieldFromWhom      = "from_whom"
	FieldTradedFor     = "traded_for"
	FieldWithWhom      = "with_whom"
	FieldReturnBy      = "return_by"
	FieldMaterialsCost = "materials_cost"
	FieldEvent         = "event"
)

// FieldUnknown is recorded when a required field could not be
// extracted within the retry budget.
const FieldUnknown = "unknown"

// templates maps each acquisition type to its ordered required fields.
// The remaining-questions list of a conversation is always this
// template minus whatever has already been collected.
var templates = map[model.AcquisitionType][]string{
	model.AcquisitionPurchased: {FieldPrice, FieldLocation, FieldDate},
	model.AcquisitionGift:      {FieldFromWhom, FieldDate},
	model.AcquisitionTrade:     {FieldTradedFor, FieldWithWhom},
	model.AcquisitionFound:     {FieldLocation, FieldDate},
	model.AcquisitionBorrowed:  {FieldFromWhom, FieldReturnBy},
	model.AcquisitionInherited: {FieldFromWhom, FieldDate},
	model.AcquisitionMade:      {FieldMaterialsCost, FieldDate},
	model.AcquisitionWon:       {FieldEvent, FieldDate},
	model.AcquisitionLost:      {FieldDate},
	model.AcquisitionDisposed:  {FieldDate},
}

// Template returns a copy of the required-field list for t.
func Template(t model.AcquisitionType) []string {
	tpl := templates[t]
	out := make([]string, len(tpl))
	copy(out, tpl)
	return out
}

// freeformFields accept any non-empty answer verbatim; the extractor
// has no pattern for "my aunt".
var freeformFields = map[string]bool{
	FieldFromWhom:  true,
	FieldTradedFor: true,
	FieldWithWhom:  true,
	FieldEvent:     true,
}

// TypeQuestion is asked when the opening statement did not reveal how
// the item was acquired.
const TypeQuestion = "Did you buy this, receive it as a gift, find it, or something else?"

// questionFor phrases the clarifying question for a field, adjusted to
// the acquisition type where the generic phrasing would read oddly.
func questionFor(t model.AcquisitionType, field string) string {
	switch field {
	case FieldPrice:
		return "How much did it cost?"
	case FieldLocation:
		if t == model.AcquisitionFound {
			return "Where did you find it?"
		}
		return "Where did you get it?"
	case FieldDate:
		switch t {
		case model.AcquisitionPurchased:
			return "When did you buy it?"
		case model.AcquisitionGift:
			return "When did you receive it?"
		case model.AcquisitionLost:
			return "When did you lose it?"
		case model.AcquisitionDisposed:
			return "When did you get rid of it?"
		default:
			return "When did you get it?"
		}
	case FieldFromWhom:
		switch t {
		case model.AcquisitionBorrowed:
			return "Who did you borrow it from?"
		case model.AcquisitionInherited:
			return "Who did you inherit it from?"
		default:
			return "Who gave it to you?"
		}
	case FieldTradedFor:
		return "What did you trade for it?"
	case FieldWithWhom:
		return "Who did you trade with?"
	case FieldReturnBy:
		return "When do you need to return it?"
	case FieldMaterialsCost:
		return "About how much did the materials cost?"
	case FieldEvent:
		return "What did you win it at?"
	}
	return "Can you tell me more about the " + field + "?"
}

// fieldFromFilters maps an extracted filter set onto a template field
// value, or "" when the filters carry nothing for it.
func fieldFromFilters(field string, f model.FilterSet) string {
	switch field {
	case FieldPrice, FieldMaterialsCost:
		return f[model.SlotPrice]
	case FieldLocation:
		return f[model.SlotLocation]
	case FieldDate, FieldReturnBy:
		if v := f[model.SlotDate]; v != "" {
			return v
		}
		return f[model.SlotDateFrom]
	}
	// Freeform fields only come from direct answers.
	return ""
}
