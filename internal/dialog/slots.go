package dialog

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/tl-its-umich-edu/m-voice/internal/filter"
	"github.com/tl-its-umich-edu/m-voice/internal/textutil"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

// Parameter names shared with the agent definition.
const (
	ParamLocation     = "Location"
	ParamMeal         = "Meal"
	ParamItem         = "Item"
	ParamDate         = "Date"
	ParamDateOriginal = "Date.original"
	ParamTraits       = "itemTrait"
	ParamAllergens    = "itemAllergens"
	ParamResponse     = "response"
)

// Slot: a value the conversation must collect.
type Slot int

const (
	SlotLocation Slot = iota
	SlotMeal
	SlotItem
)

type slotInfo struct {
	param    string
	question string
	state    State
	// category is validated through the term matcher; empty means any value is accepted.
	category vocabulary.Category
}

var slotTable = map[Slot]slotInfo{
	SlotLocation: {
		param:    ParamLocation,
		question: "Which dining location would you like?",
		state:    StateAwaitingLocation,
		category: vocabulary.Location,
	},
	SlotMeal: {
		param:    ParamMeal,
		question: "Which meal of the day would you like?",
		state:    StateAwaitingMeal,
		category: vocabulary.Meal,
	},
	SlotItem: {
		param:    ParamItem,
		question: "Which food item are you looking for?",
		state:    StateAwaitingItem,
	},
}

// Question: returns the prompt asked when slot is unfilled.
func (s Slot) Question() string {
	return slotTable[s].question
}

func (s Slot) String() string {
	if info, ok := slotTable[s]; ok {
		return info.param
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// State: where a turn ended up.
type State int

const (
	StateAwaitingLocation State = iota
	StateAwaitingMeal
	StateAwaitingItem
	StateAllSlotsValid
	StateSlotInvalidSuggestion
	StateDispatched
)

var stateNames = [...]string{
	StateAwaitingLocation:      "awaiting_location",
	StateAwaitingMeal:          "awaiting_meal",
	StateAwaitingItem:          "awaiting_item",
	StateAllSlotsValid:         "all_slots_valid",
	StateSlotInvalidSuggestion: "slot_invalid_suggestion",
	StateDispatched:            "dispatched",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Slots: the typed view of a parameter map, either the current turn's or the carried context's.
type Slots struct {
	Location     string   `json:"Location"`
	Meal         string   `json:"Meal"`
	Item         string   `json:"Item"`
	Date         string   `json:"Date"`
	DateOriginal string   `json:"Date.original"`
	Traits       []string `json:"itemTrait"`
	Allergens    []string `json:"itemAllergens"`
	Response     string   `json:"response"`
}

// Value: returns the slot's value.
func (s Slots) Value(slot Slot) string {
	switch slot {
	case SlotLocation:
		return s.Location
	case SlotMeal:
		return s.Meal
	case SlotItem:
		return s.Item
	default:
		return ""
	}
}

// Requisites: returns the trait and allergen filters.
func (s Slots) Requisites() filter.Requisites {
	return filter.Requisites{Traits: s.Traits, Allergens: s.Allergens}
}

// DecodeTurn: decodes the current turn's parameters.
func DecodeTurn(params map[string]any) (Slots, error) {
	return decodeSlots(params)
}

// DecodeCarried: decodes the parameters of the first output context. A request without
// contexts carries nothing.
func DecodeCarried(contexts []OutputContext) (Slots, error) {
	if len(contexts) == 0 {
		return Slots{}, nil
	}
	return decodeSlots(contexts[0].Parameters)
}

func decodeSlots(params map[string]any) (Slots, error) {
	var slots Slots
	if len(params) == 0 {
		return slots, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &slots,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       firstElementHook,
	})
	if err != nil {
		return Slots{}, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return Slots{}, fmt.Errorf("decode parameters: %w", err)
	}
	slots.Location = textutil.CleanInput(slots.Location)
	slots.Meal = textutil.CleanInput(slots.Meal)
	slots.Item = textutil.CleanInput(slots.Item)
	slots.Traits = compact(slots.Traits)
	slots.Allergens = compact(slots.Allergens)
	return slots, nil
}

// dateObjectKeys: the fields of a structured date or date-period value, in preference order.
var dateObjectKeys = []string{"date_time", "startDate", "startDateTime", "date"}

// firstElementHook: narrows composite parameter values into string fields. List entities arrive
// as arrays even when one value was said, and date periods arrive as objects.
func firstElementHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Slice, reflect.Array:
		v := reflect.ValueOf(data)
		if v.Len() == 0 {
			return "", nil
		}
		return fmt.Sprint(v.Index(0).Interface()), nil
	case reflect.Map:
		obj, ok := data.(map[string]any)
		if !ok {
			return "", nil
		}
		for _, key := range dateObjectKeys {
			if value, ok := obj[key].(string); ok {
				return value, nil
			}
		}
		return "", nil
	default:
		return data, nil
	}
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
