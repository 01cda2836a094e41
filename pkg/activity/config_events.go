package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the registry.
const (
	VerbModelConfigured   = "admin.model.configured"
	VerbGlobalConfigured  = "admin.global.configured"
	VerbModelsExcluded    = "admin.models.excluded"
	VerbConfigReset       = "admin.config.reset"
	VerbNavigationUpdated = "admin.navigation.updated"
)

// Object types carried by registry events.
const (
	ObjectModel      = "admin.model"
	ObjectGlobal     = "admin.global"
	ObjectExclusions = "admin.exclusions"
	ObjectRegistry   = "admin.registry"
	ObjectNavigation = "admin.navigation"
)

// ConfigEventInput describes the fields shared by registry lifecycle events.
type ConfigEventInput struct {
	ActorID    string
	TenantID   string
	Channel    string
	SnapshotID string
	Version    uint64
	Models     []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildModelConfiguredEvent reports a published model configuration block.
func BuildModelConfiguredEvent(input ConfigEventInput) Event {
	return buildConfigEvent(VerbModelConfigured, ObjectModel, firstModel(input.Models, ObjectModel), input)
}

// BuildGlobalConfiguredEvent reports a published global configuration block.
func BuildGlobalConfiguredEvent(input ConfigEventInput) Event {
	return buildConfigEvent(VerbGlobalConfigured, ObjectGlobal, "global", input)
}

// BuildModelsExcludedEvent reports a new excluded model set. The object ID
// is the snapshot the set was published in.
func BuildModelsExcludedEvent(input ConfigEventInput) Event {
	return buildConfigEvent(VerbModelsExcluded, ObjectExclusions, snapshotOr(input, ObjectExclusions), input)
}

// BuildConfigResetEvent reports a reset of named models, or of everything
// when no model is named.
func BuildConfigResetEvent(input ConfigEventInput) Event {
	objectID := "all"
	if len(input.Models) > 0 {
		objectID = strings.Join(input.Models, ",")
	}
	return buildConfigEvent(VerbConfigReset, ObjectRegistry, objectID, input)
}

// BuildNavigationUpdatedEvent reports a change of navigation settings.
func BuildNavigationUpdatedEvent(input ConfigEventInput) Event {
	return buildConfigEvent(VerbNavigationUpdated, ObjectNavigation, snapshotOr(input, ObjectNavigation), input)
}

func buildConfigEvent(verb, objectType, objectID string, input ConfigEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.SnapshotID
		metadata["version"] = input.Version
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   strings.TrimSpace(objectID),
		Channel:    strings.TrimSpace(input.Channel),
		SnapshotID: strings.TrimSpace(input.SnapshotID),
		Version:    input.Version,
		Models:     cloneStrings(input.Models),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func firstModel(models []string, fallback string) string {
	for _, model := range models {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func snapshotOr(input ConfigEventInput, fallback string) string {
	if id := strings.TrimSpace(input.SnapshotID); id != "" {
		return id
	}
	return fallback
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
