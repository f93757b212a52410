package activity

import (
	"strings"
	"time"
)

// Verbs emitted for stock mutations.
const (
	VerbValueSet    = "stock.value.set"
	VerbValuesSet   = "stock.values.set"
	VerbValuesReset = "stock.values.reset"
)

// ObjectTypeStock is the object type of every stock mutation event.
const ObjectTypeStock = "stock"

// StockContext identifies the stock and batch that produced an event.
type StockContext struct {
	Name    string
	BatchID string
}

// StockEventInput describes the common fields for stock mutation events.
type StockEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Path           string
	Paths          []string
	OldValue       any
	NewValue       any
	Stock          StockContext
	OccurredAt     time.Time
}

// BuildValueSetEvent constructs the event for a path-scoped write.
func BuildValueSetEvent(input StockEventInput) Event {
	return buildStockEvent(VerbValueSet, input)
}

// BuildValuesSetEvent constructs the event for a whole-tree replacement.
func BuildValuesSetEvent(input StockEventInput) Event {
	return buildStockEvent(VerbValuesSet, input)
}

// BuildValuesResetEvent constructs the event for a reset to initial values.
func BuildValuesResetEvent(input StockEventInput) Event {
	return buildStockEvent(VerbValuesReset, input)
}

func buildStockEvent(verb string, input StockEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = input.Path
	}
	if len(input.Paths) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["notified_paths"] = append([]string{}, input.Paths...)
	}
	if input.Stock.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["stock"] = input.Stock.Name
	}
	if input.Stock.BatchID != "" {
		metadata = ensureMetadata(metadata)
		metadata["batch_id"] = input.Stock.BatchID
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	var recipients []string
	if len(input.Recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Path)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.Stock.Name)
	}
	if objectID == "" {
		objectID = ObjectTypeStock
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeStock,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
