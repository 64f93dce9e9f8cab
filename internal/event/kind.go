package event

import (
	"fmt"
	"strings"
)

// Kind identifies one lifecycle event.
type Kind uint8

// Lifecycle kinds raised by binjuice itself. These are played directly and are
// never part of a subscription.
const (
	StartBinaryNinja Kind = iota
	EndBinaryNinja
	StartBinaryView
	EndBinaryView

	// Host notification kinds.
	NotificationBarrier
	DataWritten
	DataInserted
	DataRemoved
	FunctionAdded
	FunctionRemoved
	FunctionUpdated
	FunctionUpdateRequested
	DataVariableAdded
	DataVariableRemoved
	DataVariableUpdated
	DataMetadataUpdated
	TagTypeUpdated
	TagAdded
	TagRemoved
	TagUpdated
	SymbolAdded
	SymbolRemoved
	SymbolUpdated
	StringFound
	StringRemoved
	TypeDefined
	TypeUndefined
	TypeReferenceChanged
	TypeFieldReferenceChanged
	SegmentAdded
	SegmentRemoved
	SegmentUpdated
	SectionAdded
	SectionRemoved
	SectionUpdated
	ComponentNameUpdated
	ComponentAdded
	ComponentMoved
	ComponentRemoved
	ComponentFunctionAdded
	ComponentFunctionRemoved
	ComponentDataVariableAdded
	ComponentDataVariableRemoved
	ExternalLibraryAdded
	ExternalLibraryUpdated
	ExternalLibraryRemoved
	ExternalLocationAdded
	ExternalLocationUpdated
	ExternalLocationRemoved
	TypeArchiveAttached
	TypeArchiveDetached
	TypeArchiveConnected
	TypeArchiveDisconnected
	UndoEntryAdded
	UndoEntryTaken
	RedoEntryTaken
	Rebased

	// NumKinds is the size of the catalog.
	NumKinds
)

// Mask is a bitset, so the catalog must fit in 64 bits.
const _ uint = 64 - uint(NumKinds)

// descriptor is one catalog row.
type descriptor struct {
	name    string  // config name
	wire    string  // host callback name
	params  []Param // arguments after the document handle
	barrier bool    // callback must return a numeric result
	host    bool    // raised by the host, subscribable
}

func hostKind(name, wire string, params ...Param) descriptor {
	return descriptor{name: name, wire: wire, params: params, host: true}
}

// Parameter shapes shared by many rows.
var (
	pOffset    = Param{Name: "offset", Type: ArgAddress}
	pLen       = Param{Name: "len", Type: ArgLength}
	pFunc      = Param{Name: "func", Type: ArgHandle}
	pVar       = Param{Name: "var", Type: ArgAddress}
	pTagRef    = Param{Name: "tag_ref", Type: ArgHandle}
	pSym       = Param{Name: "sym", Type: ArgHandle}
	pStrType   = Param{Name: "type", Type: ArgEnum}
	pTypeName  = Param{Name: "name", Type: ArgName}
	pType      = Param{Name: "type", Type: ArgHandle}
	pSegment   = Param{Name: "segment", Type: ArgHandle}
	pSection   = Param{Name: "section", Type: ArgHandle}
	pComponent = Param{Name: "component", Type: ArgHandle}
	pFormer    = Param{Name: "former_parent", Type: ArgHandle}
	pLibrary   = Param{Name: "library", Type: ArgHandle}
	pLocation  = Param{Name: "location", Type: ArgHandle}
	pArchiveID = Param{Name: "id", Type: ArgName}
	pArchPath  = Param{Name: "path", Type: ArgBytes}
	pArchive   = Param{Name: "archive", Type: ArgHandle}
	pEntry     = Param{Name: "entry", Type: ArgHandle}
)

var catalog = [NumKinds]descriptor{
	StartBinaryNinja: {name: "start_binary_ninja"},
	EndBinaryNinja:   {name: "end_binary_ninja"},
	StartBinaryView:  {name: "start_binary_view"},
	EndBinaryView:    {name: "end_binary_view"},

	NotificationBarrier:          {name: "notification_barrier", wire: "notificationBarrier", barrier: true, host: true},
	DataWritten:                  hostKind("data_written", "dataWritten", pOffset, pLen),
	DataInserted:                 hostKind("data_inserted", "dataInserted", pOffset, pLen),
	DataRemoved:                  hostKind("data_removed", "dataRemoved", pOffset, pLen),
	FunctionAdded:                hostKind("function_added", "functionAdded", pFunc),
	FunctionRemoved:              hostKind("function_removed", "functionRemoved", pFunc),
	FunctionUpdated:              hostKind("function_updated", "functionUpdated", pFunc),
	FunctionUpdateRequested:      hostKind("function_update_requested", "functionUpdateRequested", pFunc),
	DataVariableAdded:            hostKind("data_variable_added", "dataVariableAdded", pVar),
	DataVariableRemoved:          hostKind("data_variable_removed", "dataVariableRemoved", pVar),
	DataVariableUpdated:          hostKind("data_variable_updated", "dataVariableUpdated", pVar),
	DataMetadataUpdated:          hostKind("data_metadata_updated", "dataMetadataUpdated", pOffset),
	TagTypeUpdated:               hostKind("tag_type_updated", "tagTypeUpdated", Param{Name: "tag_type", Type: ArgHandle}),
	TagAdded:                     hostKind("tag_added", "tagAdded", pTagRef),
	TagRemoved:                   hostKind("tag_removed", "tagRemoved", pTagRef),
	TagUpdated:                   hostKind("tag_updated", "tagUpdated", pTagRef),
	SymbolAdded:                  hostKind("symbol_added", "symbolAdded", pSym),
	SymbolRemoved:                hostKind("symbol_removed", "symbolRemoved", pSym),
	SymbolUpdated:                hostKind("symbol_updated", "symbolUpdated", pSym),
	StringFound:                  hostKind("string_found", "stringFound", pStrType, pOffset, pLen),
	StringRemoved:                hostKind("string_removed", "stringRemoved", pStrType, pOffset, pLen),
	TypeDefined:                  hostKind("type_defined", "typeDefined", pTypeName, pType),
	TypeUndefined:                hostKind("type_undefined", "typeUndefined", pTypeName, pType),
	TypeReferenceChanged:         hostKind("type_reference_changed", "typeReferenceChanged", pTypeName, pType),
	TypeFieldReferenceChanged:    hostKind("type_field_reference_changed", "typeFieldReferenceChanged", pTypeName, pOffset),
	SegmentAdded:                 hostKind("segment_added", "segmentAdded", pSegment),
	SegmentRemoved:               hostKind("segment_removed", "segmentRemoved", pSegment),
	SegmentUpdated:               hostKind("segment_updated", "segmentUpdated", pSegment),
	SectionAdded:                 hostKind("section_added", "sectionAdded", pSection),
	SectionRemoved:               hostKind("section_removed", "sectionRemoved", pSection),
	SectionUpdated:               hostKind("section_updated", "sectionUpdated", pSection),
	ComponentNameUpdated:         hostKind("component_name_updated", "componentNameUpdated", Param{Name: "previous_name", Type: ArgName}, pComponent),
	ComponentAdded:               hostKind("component_added", "componentAdded", pComponent),
	ComponentMoved:               hostKind("component_moved", "componentMoved", pFormer, Param{Name: "new_parent", Type: ArgHandle}, pComponent),
	ComponentRemoved:             hostKind("component_removed", "componentRemoved", pFormer, pComponent),
	ComponentFunctionAdded:       hostKind("component_function_added", "componentFunctionAdded", pComponent, pFunc),
	ComponentFunctionRemoved:     hostKind("component_function_removed", "componentFunctionRemoved", pComponent, pFunc),
	ComponentDataVariableAdded:   hostKind("component_data_variable_added", "componentDataVariableAdded", pComponent, pVar),
	ComponentDataVariableRemoved: hostKind("component_data_variable_removed", "componentDataVariableRemoved", pComponent, pVar),
	ExternalLibraryAdded:         hostKind("external_library_added", "externalLibraryAdded", pLibrary),
	ExternalLibraryUpdated:       hostKind("external_library_updated", "externalLibraryUpdated", pLibrary),
	ExternalLibraryRemoved:       hostKind("external_library_removed", "externalLibraryRemoved", pLibrary),
	ExternalLocationAdded:        hostKind("external_location_added", "externalLocationAdded", pLocation),
	ExternalLocationUpdated:      hostKind("external_location_updated", "externalLocationUpdated", pLocation),
	ExternalLocationRemoved:      hostKind("external_location_removed", "externalLocationRemoved", pLocation),
	TypeArchiveAttached:          hostKind("type_archive_attached", "typeArchiveAttached", pArchiveID, pArchPath),
	TypeArchiveDetached:          hostKind("type_archive_detached", "typeArchiveDetached", pArchiveID, pArchPath),
	TypeArchiveConnected:         hostKind("type_archive_connected", "typeArchiveConnected", pArchive),
	TypeArchiveDisconnected:      hostKind("type_archive_disconnected", "typeArchiveDisconnected", pArchive),
	UndoEntryAdded:               hostKind("undo_entry_added", "undoEntryAdded", pEntry),
	UndoEntryTaken:               hostKind("undo_entry_taken", "undoEntryTaken", pEntry),
	RedoEntryTaken:               hostKind("redo_entry_taken", "redoEntryTaken", pEntry),
	Rebased:                      hostKind("rebased", "rebased", Param{Name: "new_view", Type: ArgHandle}),
}

// byName resolves both config and wire names.
var byName = func() map[string]Kind {
	m := make(map[string]Kind, 2*int(NumKinds))
	for k := range NumKinds {
		d := catalog[k]
		m[d.name] = k
		if d.wire != "" {
			m[d.wire] = k
		}
	}
	return m
}()

// String returns the config name of the kind.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return catalog[k].name
}

// Valid reports whether k is a member of the catalog.
func (k Kind) Valid() bool {
	return k < NumKinds
}

// WireName returns the host callback name, or "" for lifecycle kinds.
func (k Kind) WireName() string {
	if !k.Valid() {
		return ""
	}
	return catalog[k].wire
}

// Subscribable reports whether the host raises this kind.
func (k Kind) Subscribable() bool {
	return k.Valid() && catalog[k].host
}

// Params returns the callback parameters following the document handle.
func (k Kind) Params() []Param {
	if !k.Valid() {
		return nil
	}
	return catalog[k].params
}

// DefaultResult is the value returned to the host after the callback runs.
// Only barrier-style callbacks carry a result; it is always zero.
func (k Kind) DefaultResult() (uint64, bool) {
	if !k.Valid() {
		return 0, false
	}
	return 0, catalog[k].barrier
}

// ParseKind resolves a config name ("function_added") or a wire name
// ("functionAdded").
func ParseKind(name string) (Kind, error) {
	if k, ok := byName[strings.TrimSpace(name)]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// All returns every kind in catalog order.
func All() []Kind {
	kinds := make([]Kind, 0, NumKinds)
	for k := range NumKinds {
		kinds = append(kinds, k)
	}
	return kinds
}
