package ordering

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// Shape tells which wire form a reorder request arrived in.
type Shape int

const (
	ShapeFlat Shape = iota
	ShapeGrouped
)

func (s Shape) String() string {
	if s == ShapeGrouped {
		return "grouped"
	}
	return "flat"
}

// Group is one category bucket of a grouped reorder, in wire order.
type Group struct {
	Category enums.MediaCategory
	IDs      []uuid.UUID
}

// Input is the normalized reorder request. Flat requests fill IDs, grouped requests fill Groups.
// Categories holds explicit per-item assignments sent alongside either shape.
type Input struct {
	Shape      Shape
	IDs        []uuid.UUID
	Groups     []Group
	Categories map[uuid.UUID]enums.MediaCategory
}

// Step is one item in the flattened sequence. Category is nil when the request leaves the
// item's category alone.
type Step struct {
	ID       uuid.UUID
	Category *enums.MediaCategory
}

// Steps flattens the input into a single sequence. Groups are walked in the order the client
// sent them and each group's key becomes the category of its items. An explicit entry in
// Categories wins over the group key. Repeated ids keep their first occurrence.
func (in Input) Steps() []Step {
	seen := make(map[uuid.UUID]struct{})
	var steps []Step
	add := func(id uuid.UUID, category *enums.MediaCategory) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		if explicit, ok := in.Categories[id]; ok {
			c := explicit
			category = &c
		}
		steps = append(steps, Step{ID: id, Category: category})
	}

	switch in.Shape {
	case ShapeGrouped:
		for _, group := range in.Groups {
			category := group.Category
			for _, id := range group.IDs {
				add(id, &category)
			}
		}
	default:
		for _, id := range in.IDs {
			add(id, nil)
		}
	}
	return steps
}

// DecodeInput accepts either a JSON array of ids or a JSON object mapping category to an
// array of ids, plus an optional object mapping id to category. Array entries may be bare id
// strings or objects with an "id" field. An empty order decodes to an empty flat input.
func DecodeInput(order, categories json.RawMessage) (Input, error) {
	in := Input{Shape: ShapeFlat}

	assignments, err := decodeAssignments(categories)
	if err != nil {
		return Input{}, err
	}
	in.Categories = assignments

	trimmed := bytes.TrimSpace(order)
	if isEmptyJSON(trimmed) {
		return in, nil
	}

	switch trimmed[0] {
	case '[':
		ids, err := decodeIDList(trimmed)
		if err != nil {
			return Input{}, err
		}
		in.IDs = ids
	case '{':
		groups, err := decodeGroups(trimmed)
		if err != nil {
			return Input{}, err
		}
		in.Shape = ShapeGrouped
		in.Groups = groups
	default:
		return Input{}, pkgerrors.New(pkgerrors.CodeValidation, "order must be a JSON array or object")
	}
	return in, nil
}

func isEmptyJSON(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`))
}

func decodeAssignments(raw json.RawMessage) (map[uuid.UUID]enums.MediaCategory, error) {
	trimmed := bytes.TrimSpace(raw)
	if isEmptyJSON(trimmed) {
		return nil, nil
	}
	var wire map[string]string
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "categories must map media ids to category names")
	}
	out := make(map[uuid.UUID]enums.MediaCategory, len(wire))
	for rawID, rawCategory := range wire {
		id, err := parseID(rawID)
		if err != nil {
			return nil, err
		}
		category, err := enums.ParseMediaCategory(rawCategory)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category assignment").
				WithDetails(map[string]any{"media_id": rawID, "category": rawCategory})
		}
		out[id] = category
	}
	return out, nil
}

type idEntry struct {
	ID string `json:"id"`
}

func decodeIDList(raw []byte) ([]uuid.UUID, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order must be a list of media ids")
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		id, err := decodeIDEntry(entry)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func decodeIDEntry(raw json.RawMessage) (uuid.UUID, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var entry idEntry
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order entry")
		}
		return parseID(entry.ID)
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order entries must be id strings")
	}
	return parseID(s)
}

// decodeGroups walks the object token by token so group order matches the request body.
func decodeGroups(raw []byte) ([]Group, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid grouped order")
	}

	var groups []Group
	index := make(map[enums.MediaCategory]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid grouped order")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid grouped order key")
		}
		category, err := enums.ParseMediaCategory(key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown category in order").
				WithDetails(map[string]any{"category": key})
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid grouped order")
		}
		ids, err := decodeIDList(value)
		if err != nil {
			return nil, err
		}

		// aliases can name the same category twice; merge into the first bucket.
		if i, ok := index[category]; ok {
			groups[i].IDs = append(groups[i].IDs, ids...)
			continue
		}
		index[category] = len(groups)
		groups = append(groups, Group{Category: category, IDs: ids})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid grouped order")
	}
	return groups, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid media id %q", raw)
	}
	return id, nil
}
