package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Payload is the type-specific data of a Node.
// Exactly one implementation exists per NodeType; RawData keeps unknown types intact.
type Payload interface {
	NodeType() NodeType
}

// EmptyData is the payload of start and end nodes.
type EmptyData struct {
	Kind NodeType `json:"-" mapstructure:"-"`
}

func (d EmptyData) NodeType() NodeType { return d.Kind }

// ActionData is the payload of an action node.
type ActionData struct {
	Message string `json:"message" mapstructure:"message"`
}

func (ActionData) NodeType() NodeType { return NodeTypeAction }

// DelayType selects how a delay node computes its wait.
type DelayType string

const (
	DelayRelative DelayType = "relative"
	DelaySpecific DelayType = "specific"
)

// DelayUnit is the unit of a relative delay.
type DelayUnit string

const (
	UnitMinutes DelayUnit = "minutes"
	UnitHours   DelayUnit = "hours"
	UnitDays    DelayUnit = "days"
)

// Duration returns the length of one unit, or 0 for an unknown unit.
func (u DelayUnit) Duration() time.Duration {
	switch u {
	case UnitMinutes:
		return time.Minute
	case UnitHours:
		return time.Hour
	case UnitDays:
		return 24 * time.Hour
	}
	return 0
}

// DelayData is the payload of a delay node.
// Value is kept as the editor stores it (a numeric string).
type DelayData struct {
	DelayType DelayType `json:"delayType" mapstructure:"delayType"`
	Value     string    `json:"value,omitempty" mapstructure:"value"`
	Unit      DelayUnit `json:"unit,omitempty" mapstructure:"unit"`
	Date      string    `json:"date,omitempty" mapstructure:"date"`
}

func (DelayData) NodeType() NodeType { return NodeTypeDelay }

// Amount parses Value the way a lenient integer parser does:
// leading whitespace and sign are accepted, parsing stops at the first non-digit,
// and anything unparseable yields 0. Values past the int64 range saturate.
func (d DelayData) Amount() int64 {
	s := strings.TrimLeft(d.Value, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if n > (math.MaxInt64-9)/10 {
			n = math.MaxInt64
			break
		}
		n = n*10 + int64(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}

var dateLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.000", true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02", false},
}

// Target parses Date. Timestamps without a zone are read in local time,
// bare dates as UTC midnight.
func (d DelayData) Target() (time.Time, error) {
	raw := strings.TrimSpace(d.Date)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	for _, l := range dateLayouts {
		loc := time.UTC
		if l.local {
			loc = time.Local
		}
		if t, err := time.ParseInLocation(l.layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, d.Date)
}

// Operator is the comparison applied by a Rule.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "not_equals"
	OpIncludes   Operator = "includes"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
)

// NormalizeOperator maps the editor's spaced spellings ("not equals", "starts with")
// to an Operator. Case is significant.
func NormalizeOperator(s string) Operator {
	return Operator(strings.Join(strings.Fields(s), "_"))
}

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	switch NormalizeOperator(string(o)) {
	case OpEquals, OpNotEquals, OpIncludes, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

// Join types combine a rule with the running result.
const (
	JoinAnd = "AND"
	JoinOr  = "OR"
)

// Rule is a single clause of a condition node.
// JoinType is ignored on the first rule of a list.
type Rule struct {
	Field    string   `json:"field" mapstructure:"field"`
	Operator Operator `json:"operator" mapstructure:"operator"`
	Value    string   `json:"value" mapstructure:"value"`
	JoinType string   `json:"joinType,omitempty" mapstructure:"joinType"`
}

// ConditionData is the payload of a condition node.
type ConditionData struct {
	Rules []Rule `json:"rules" mapstructure:"rules"`
}

func (ConditionData) NodeType() NodeType { return NodeTypeCondition }

// RawData preserves the payload of a node type the engine does not know.
type RawData struct {
	Kind   NodeType
	Fields map[string]any
}

func (d RawData) NodeType() NodeType { return d.Kind }

// DecodePayload builds the typed payload for t from a generic map.
// Numbers are weakly converted to strings so that {"value": 2} and {"value": "2"} agree.
func DecodePayload(t NodeType, raw map[string]any) (Payload, error) {
	var target Payload
	switch t {
	case NodeTypeStart, NodeTypeEnd:
		return EmptyData{Kind: t}, nil
	case NodeTypeAction:
		target = &ActionData{}
	case NodeTypeDelay:
		target = &DelayData{}
	case NodeTypeCondition:
		target = &ConditionData{}
	default:
		return RawData{Kind: t, Fields: maps.Clone(raw)}, nil
	}

	if len(raw) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           target,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", t, err)
		}
	}

	switch p := target.(type) {
	case *ActionData:
		return *p, nil
	case *DelayData:
		return *p, nil
	case *ConditionData:
		return *p, nil
	}
	return target, nil
}

func clonePayload(p Payload) Payload {
	switch d := p.(type) {
	case ConditionData:
		d.Rules = append([]Rule(nil), d.Rules...)
		return d
	case RawData:
		d.Fields = maps.Clone(d.Fields)
		return d
	}
	return p
}

// wireNode is the editor representation of a Node.
type wireNode struct {
	ID       string         `json:"id" yaml:"id"`
	Type     NodeType       `json:"type" yaml:"type"`
	Position Position       `json:"position" yaml:"position,omitempty"`
	Data     map[string]any `json:"data" yaml:"data,omitempty"`
}

func (n *Node) fromWire(w wireNode) error {
	payload, err := DecodePayload(w.Type, w.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", w.ID, err)
	}
	*n = Node{ID: w.ID, Type: w.Type, Position: w.Position, Data: payload}
	return nil
}

func (n Node) data() any {
	switch d := n.Data.(type) {
	case nil, EmptyData:
		return map[string]any{}
	case RawData:
		if d.Fields == nil {
			return map[string]any{}
		}
		return d.Fields
	default:
		return d
	}
}

// UnmarshalJSON decodes the editor format, selecting the payload by type.
func (n *Node) UnmarshalJSON(b []byte) error {
	var w wireNode
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	return n.fromWire(w)
}

// MarshalJSON encodes the node in the editor format.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string   `json:"id"`
		Type     NodeType `json:"type"`
		Position Position `json:"position"`
		Data     any      `json:"data"`
	}{n.ID, n.Type, n.Position, n.data()})
}

// UnmarshalYAML lets hand-written graph files use the same shape as the editor JSON.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var w wireNode
	if err := value.Decode(&w); err != nil {
		return err
	}
	return n.fromWire(w)
}

// MarshalYAML encodes the node with a generic data map.
func (n Node) MarshalYAML() (any, error) {
	raw, err := json.Marshal(n.data())
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return wireNode{ID: n.ID, Type: n.Type, Position: n.Position, Data: data}, nil
}
