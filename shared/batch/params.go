package batch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ParameterType is the declared type of a job parameter
type ParameterType string

const (
	TypeString ParameterType = "STRING"
	TypeLong   ParameterType = "LONG"
	TypeDate   ParameterType = "DATE"
)

// Parameter is one typed job parameter value
type Parameter struct {
	Type  ParameterType
	Value any // string, int64 or time.Time
}

func (p Parameter) String() string {
	switch v := p.Value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// JobParameters is an immutable set of typed parameters. The whole set is
// the identity of a job instance.
type JobParameters struct {
	entries map[string]Parameter
}

// ParametersBuilder accumulates parameters for a JobParameters
type ParametersBuilder struct {
	entries map[string]Parameter
}

// NewParametersBuilder returns an empty builder
func NewParametersBuilder() *ParametersBuilder {
	return &ParametersBuilder{entries: make(map[string]Parameter)}
}

func (b *ParametersBuilder) AddString(key, value string) *ParametersBuilder {
	b.entries[key] = Parameter{Type: TypeString, Value: value}
	return b
}

func (b *ParametersBuilder) AddLong(key string, value int64) *ParametersBuilder {
	b.entries[key] = Parameter{Type: TypeLong, Value: value}
	return b
}

// AddDate stores value truncated to milliseconds in UTC
func (b *ParametersBuilder) AddDate(key string, value time.Time) *ParametersBuilder {
	b.entries[key] = Parameter{Type: TypeDate, Value: time.UnixMilli(value.UnixMilli()).UTC()}
	return b
}

// Build returns the parameters; the builder may keep being used
func (b *ParametersBuilder) Build() JobParameters {
	entries := make(map[string]Parameter, len(b.entries))
	for k, v := range b.entries {
		entries[k] = v
	}
	return JobParameters{entries: entries}
}

// Get returns the raw parameter
func (p JobParameters) Get(key string) (Parameter, bool) {
	param, ok := p.entries[key]
	return param, ok
}

func (p JobParameters) GetString(key string) (string, bool) {
	param, ok := p.entries[key]
	if !ok || param.Type != TypeString {
		return "", false
	}
	return param.Value.(string), true
}

func (p JobParameters) GetLong(key string) (int64, bool) {
	param, ok := p.entries[key]
	if !ok || param.Type != TypeLong {
		return 0, false
	}
	return param.Value.(int64), true
}

func (p JobParameters) GetDate(key string) (time.Time, bool) {
	param, ok := p.entries[key]
	if !ok || param.Type != TypeDate {
		return time.Time{}, false
	}
	return param.Value.(time.Time), true
}

// Keys returns the parameter names in sorted order
func (p JobParameters) Keys() []string {
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p JobParameters) Len() int {
	return len(p.entries)
}

// Key is a stable digest of every entry, used as the instance identity
func (p JobParameters) Key() string {
	h := sha256.New()
	for _, k := range p.Keys() {
		param := p.entries[k]
		fmt.Fprintf(h, "%s={%s}%s;", k, param.Type, param.String())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Describe renders the parameters for logs, e.g. [file=a.csv, owner_id=7]
func (p JobParameters) Describe() string {
	parts := make([]string, 0, len(p.entries))
	for _, k := range p.Keys() {
		parts = append(parts, k+"="+p.entries[k].String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equal reports whether both sets hold the same typed entries
func (p JobParameters) Equal(other JobParameters) bool {
	return p.Len() == other.Len() && p.Key() == other.Key()
}

type jsonParameter struct {
	Type  ParameterType   `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes dates as epoch milliseconds
func (p JobParameters) MarshalJSON() ([]byte, error) {
	out := make(map[string]jsonParameter, len(p.entries))
	for k, param := range p.entries {
		var value any = param.Value
		if t, ok := param.Value.(time.Time); ok {
			value = t.UnixMilli()
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		out[k] = jsonParameter{Type: param.Type, Value: raw}
	}
	return json.Marshal(out)
}

func (p *JobParameters) UnmarshalJSON(data []byte) error {
	var in map[string]jsonParameter
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	b := NewParametersBuilder()
	for k, param := range in {
		switch param.Type {
		case TypeString:
			var s string
			if err := json.Unmarshal(param.Value, &s); err != nil {
				return fmt.Errorf("parameter %s: %w", k, err)
			}
			b.AddString(k, s)
		case TypeLong, TypeDate:
			n, err := decodeInt64(param.Value)
			if err != nil {
				return fmt.Errorf("parameter %s: %w", k, err)
			}
			if param.Type == TypeLong {
				b.AddLong(k, n)
			} else {
				b.AddDate(k, time.UnixMilli(n))
			}
		default:
			return fmt.Errorf("parameter %s: unknown type %q", k, param.Type)
		}
	}
	*p = b.Build()
	return nil
}

func decodeInt64(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, err
	}
	return n.Int64()
}

// ParametersValidator rejects malformed parameters before a job starts
type ParametersValidator interface {
	Validate(params JobParameters) error
}

// RequiredParameters requires each named parameter with the given type
type RequiredParameters map[string]ParameterType

func (r RequiredParameters) Validate(params JobParameters) error {
	var problems []string
	for _, key := range sortedKeys(r) {
		param, ok := params.Get(key)
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("missing %s", key))
		case param.Type != r[key]:
			problems = append(problems, fmt.Sprintf("%s must be %s, got %s", key, r[key], param.Type))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid job parameters: %s", strings.Join(problems, "; "))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type paramsKey struct{}

// WithJobParameters binds the parameters of the running execution to ctx
func WithJobParameters(ctx context.Context, params JobParameters) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

// JobParametersFrom returns the parameters of the execution ctx runs under.
// Readers and writers use it in Open to bind to the current launch.
func JobParametersFrom(ctx context.Context) (JobParameters, bool) {
	params, ok := ctx.Value(paramsKey{}).(JobParameters)
	return params, ok
}
