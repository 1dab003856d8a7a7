package reflection

import (
	"fmt"
	"reflect"
	"sync"
)

// In is embedded in a struct to mark it as a parameter object. Each exported
// field of such a struct is resolved as its own dependency.
type In struct{}

var (
	inType  = reflect.TypeOf((*In)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Analyzer performs reflection-based analysis of constructors and instances.
// It caches analysis results for performance.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[uintptr]*ConstructorInfo
}

// ConstructorInfo contains analyzed information about a constructor function or instance.
type ConstructorInfo struct {
	Type           reflect.Type
	Value          reflect.Value
	Parameters     []ParameterInfo
	IsFunc         bool         // True if this is a function constructor
	InstanceValue  any          // The actual instance value when IsFunc is false
	IsParamObject  bool         // Single parameter embedding In
	ParamObject    reflect.Type // The In struct type when IsParamObject
	ResultType     reflect.Type // First return type, or the instance type
	NumResults     int          // Non-error return count
	HasErrorReturn bool         // Returns error as last value

	dependencies []*Dependency
}

// ParameterInfo describes a constructor parameter or field in an In struct.
type ParameterInfo struct {
	Type     reflect.Type
	Name     string // Field name for In structs
	Index    int    // Parameter index or field index
	Optional bool   // From optional:"true" tag
}

// Dependency represents a single dependency of a constructor.
type Dependency struct {
	// Type of the dependency
	Type reflect.Type

	// Optional indicates the dependency resolves to the zero value when missing
	Optional bool

	// Index is the parameter position, or the field index for param objects
	Index int

	// FieldName is the field name (for param objects)
	FieldName string
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[uintptr]*ConstructorInfo),
	}
}

// Analyze analyzes a constructor function or instance and extracts dependency information.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(constructor)
	typ := val.Type()

	if typ.Kind() == reflect.Func && val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	// Instances are never cached: two values of one type are different registrations.
	if typ.Kind() != reflect.Func {
		return &ConstructorInfo{
			Type:          typ,
			Value:         val,
			InstanceValue: constructor,
			ResultType:    typ,
			NumResults:    1,
			Parameters:    []ParameterInfo{},
			dependencies:  []*Dependency{},
		}, nil
	}

	cacheKey := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.cache[cacheKey]; ok && cached.Type == typ {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &ConstructorInfo{
		Type:   typ,
		Value:  val,
		IsFunc: true,
	}

	if err := a.analyzeParameters(info); err != nil {
		return nil, fmt.Errorf("failed to analyze parameters: %w", err)
	}

	a.analyzeReturns(info)
	info.dependencies = a.buildDependencies(info)

	a.mu.Lock()
	a.cache[cacheKey] = info
	a.mu.Unlock()

	return info, nil
}

// analyzeParameters analyzes function parameters or In struct fields.
func (a *Analyzer) analyzeParameters(info *ConstructorInfo) error {
	fnType := info.Type

	if fnType.IsVariadic() {
		return fmt.Errorf("variadic constructors are not supported")
	}

	if fnType.NumIn() == 1 && hasEmbeddedType(fnType.In(0), inType) {
		info.IsParamObject = true
		return a.analyzeParamObject(info, fnType.In(0))
	}

	info.Parameters = make([]ParameterInfo, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		info.Parameters[i] = ParameterInfo{
			Type:  fnType.In(i),
			Index: i,
		}
	}

	return nil
}

// analyzeParamObject analyzes an In struct's fields.
func (a *Analyzer) analyzeParamObject(info *ConstructorInfo, structType reflect.Type) error {
	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("In parameter must be a struct, got %v", structType.Kind())
	}

	info.ParamObject = structType
	params := make([]ParameterInfo, 0, structType.NumField())

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type == inType {
			continue
		}

		if val, ok := field.Tag.Lookup("inject"); ok && val == "-" {
			continue
		}

		optional := false
		if val, ok := field.Tag.Lookup("optional"); ok {
			optional = val == "true"
		}

		params = append(params, ParameterInfo{
			Type:     field.Type,
			Name:     field.Name,
			Index:    i,
			Optional: optional,
		})
	}

	info.Parameters = params
	return nil
}

// analyzeReturns records the produced type and whether a trailing error is returned.
func (a *Analyzer) analyzeReturns(info *ConstructorInfo) {
	fnType := info.Type
	numOut := fnType.NumOut()

	if numOut > 0 && implementsError(fnType.Out(numOut-1)) {
		info.HasErrorReturn = true
		numOut--
	}

	info.NumResults = numOut
	if numOut > 0 {
		info.ResultType = fnType.Out(0)
	}
}

// buildDependencies creates Dependency objects from ParameterInfo.
func (a *Analyzer) buildDependencies(info *ConstructorInfo) []*Dependency {
	deps := make([]*Dependency, 0, len(info.Parameters))

	for _, param := range info.Parameters {
		deps = append(deps, &Dependency{
			Type:      param.Type,
			Optional:  param.Optional,
			Index:     param.Index,
			FieldName: param.Name,
		})
	}

	return deps
}

// Dependencies returns the analyzed dependencies.
func (info *ConstructorInfo) Dependencies() []*Dependency {
	return info.dependencies
}

// GetDependencies returns the analyzed dependencies for a constructor.
func (a *Analyzer) GetDependencies(constructor any) ([]*Dependency, error) {
	info, err := a.Analyze(constructor)
	if err != nil {
		return nil, err
	}

	return info.dependencies, nil
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

// hasEmbeddedType checks if a struct type has an embedded field of the given type.
func hasEmbeddedType(t, embedded reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == embedded {
			return true
		}
	}

	return false
}

// implementsError checks if a type implements the error interface.
func implementsError(t reflect.Type) bool {
	return t.Implements(errType)
}
