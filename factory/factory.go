package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/resource"
	"go.uber.org/zap"
)

// Factory creates entities in one storage from definitions. Class files are parsed
// once and cached by normalized path; every instantiation runs the component
// constructors again, so no component is shared between instances.
type Factory struct {
	storage *ecs.Storage
	loader  *resource.Loader
	logger  *zap.Logger
	classes map[string]*Definition
}

// New creates a factory. loader reads class files and may be nil when classes are unused.
func New(storage *ecs.Storage, loader *resource.Loader, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		storage: storage,
		loader:  loader,
		logger:  logger,
		classes: make(map[string]*Definition),
	}
}

func (f *Factory) Storage() *ecs.Storage { return f.storage }

// CreateEntityFromJSON parses data and creates the entity it describes.
func (f *Factory) CreateEntityFromJSON(data []byte, parent *ecs.Entity, editorOnly bool) (*ecs.Entity, error) {
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	return f.CreateEntity(def, parent, editorOnly)
}

// CreateEntityFromClass instantiates the class file at path.
func (f *Factory) CreateEntityFromClass(path string, parent *ecs.Entity, editorOnly bool) (*ecs.Entity, error) {
	return f.CreateEntity(&Definition{Class: path}, parent, editorOnly)
}

// CreateEntity builds def under parent (nil means the root).
//
// Component entries without a usable type or whose constructor fails are skipped
// with a warning. An unknown type or a second component of the same type fails the
// whole entity, and everything built so far is destroyed. Setup runs in
// declaration order once every component is attached; a component whose Setup
// returns false is disabled. Children are built after their parent.
func (f *Factory) CreateEntity(def *Definition, parent *ecs.Entity, editorOnly bool) (*ecs.Entity, error) {
	resolved, chain, err := f.resolve(def, nil)
	if err != nil {
		return nil, err
	}
	e, err := f.build(resolved, parent, editorOnly, chain)
	if err != nil {
		return nil, err
	}
	return e, nil
}

const maxClassDepth = 16

// resolve expands class references into a flat definition. chain holds the
// normalized class paths being instantiated above def, including those of
// ancestor entities; the returned chain extends it with def's own classes.
func (f *Factory) resolve(def *Definition, chain []string) (*Definition, []string, error) {
	if def.Class == "" {
		return def, chain, nil
	}
	key := resource.Normalize(def.Class)
	if slices.Contains(chain, key) {
		return nil, nil, fmt.Errorf("%w: class %q includes itself", ecs.ErrMalformedDefinition, key)
	}
	if len(chain) >= maxClassDepth {
		return nil, nil, fmt.Errorf("%w: class %q nested too deeply", ecs.ErrMalformedDefinition, key)
	}
	class, err := f.class(key)
	if err != nil {
		return nil, nil, err
	}
	base, chain, err := f.resolve(class, append(slices.Clip(chain), key))
	if err != nil {
		return nil, nil, err
	}

	out := &Definition{
		Name:       base.Name,
		Components: append(append([]json.RawMessage(nil), base.Components...), def.Components...),
		Children:   append(append([]Definition(nil), base.Children...), def.Children...),
	}
	if def.Name != "" {
		out.Name = def.Name
	}
	return out, chain, nil
}

func (f *Factory) class(path string) (*Definition, error) {
	key := resource.Normalize(path)
	if def, ok := f.classes[key]; ok {
		return def, nil
	}
	if f.loader == nil {
		return nil, fmt.Errorf("class %q: no resource loader", key)
	}
	text, err := f.loader.LoadText(key)
	if err != nil {
		return nil, fmt.Errorf("class %q: %w", key, err)
	}
	def, err := ParseDefinition([]byte(text.String()))
	if err != nil {
		return nil, fmt.Errorf("class %q: %w", key, err)
	}
	f.classes[key] = def
	f.logger.Debug("class cached", zap.String("path", key))
	return def, nil
}

// ClassCount returns the number of cached class definitions.
func (f *Factory) ClassCount() int { return len(f.classes) }

// ReloadClass drops the cached class so the next instantiation reads the file again.
func (f *Factory) ReloadClass(path string) error {
	key := resource.Normalize(path)
	delete(f.classes, key)
	if f.loader == nil || !f.loader.Loaded(key) {
		return nil
	}
	return f.loader.Reload(key)
}

func (f *Factory) build(def *Definition, parent *ecs.Entity, editorOnly bool, chain []string) (*ecs.Entity, error) {
	e := f.storage.Spawn(def.Name, parent, editorOnly)
	logger := f.logger.With(zap.String("entity", e.FullName()))

	var added []ecs.Component
	for i, entry := range def.Components {
		typeName, err := componentType(entry)
		if err != nil {
			logger.Warn("skipping component entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		ct, ok := f.storage.Registry().Lookup(typeName)
		if !ok {
			f.storage.Destroy(e.ID())
			return nil, fmt.Errorf("entity %q: %w: %q", def.Name, ecs.ErrUnknownComponentType, typeName)
		}
		c, err := ct.Create(entry)
		if err != nil {
			logger.Warn("skipping component entry", zap.Int("index", i), zap.String("type", typeName), zap.Error(err))
			continue
		}
		if err := e.AddComponent(c); err != nil {
			f.storage.Destroy(e.ID())
			return nil, fmt.Errorf("entity %q: %w", def.Name, err)
		}
		added = append(added, c)
	}

	for _, c := range added {
		if !c.Setup() {
			logger.Warn("component setup failed, disabling", zap.String("type", c.Name()))
			ecs.Disable(c)
		}
	}

	for i := range def.Children {
		child, childChain, err := f.resolve(&def.Children[i], chain)
		if err == nil {
			_, err = f.build(child, e, editorOnly, childChain)
		}
		if err != nil {
			f.storage.Destroy(e.ID())
			return nil, fmt.Errorf("entity %q: child %d: %w", def.Name, i, err)
		}
	}
	return e, nil
}

// Definition converts a live entity back into a definition.
func (f *Factory) Definition(e *ecs.Entity) (*Definition, error) {
	if e == nil || e.Destroyed() {
		return nil, ecs.ErrEntityDestroyed
	}
	def := &Definition{Name: e.Name()}
	for _, c := range e.Components() {
		data, err := json.Marshal(c.Serialize())
		if err != nil {
			return nil, fmt.Errorf("entity %q: serialize %s: %w", e.FullName(), c.Name(), err)
		}
		def.Components = append(def.Components, data)
	}
	for _, child := range e.Children() {
		childDef, err := f.Definition(child)
		if err != nil {
			return nil, err
		}
		def.Children = append(def.Children, *childDef)
	}
	return def, nil
}

// Serialize writes e and its subtree as an indented definition document.
func (f *Factory) Serialize(e *ecs.Entity) ([]byte, error) {
	def, err := f.Definition(e)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(def, "", "\t")
}

// Copy duplicates e and its subtree under parent.
func (f *Factory) Copy(e *ecs.Entity, parent *ecs.Entity) (*ecs.Entity, error) {
	def, err := f.Definition(e)
	if err != nil {
		return nil, err
	}
	return f.CreateEntity(def, parent, e.EditorOnly())
}

// IsFatal reports whether err aborted an entity creation rather than a single component.
func IsFatal(err error) bool {
	return errors.Is(err, ecs.ErrUnknownComponentType) ||
		errors.Is(err, ecs.ErrDuplicateComponentType) ||
		errors.Is(err, ecs.ErrMalformedDefinition)
}
