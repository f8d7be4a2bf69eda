package typeexec

// Hierarchy answers subtype queries between classes that cannot be settled by
// descriptor equality. Names are JVM internal names (java/lang/String).
//
// Implementations used by Batch must be safe for concurrent reads.
type Hierarchy interface {
	IsSubtype(child, parent string) bool
}

// SuperclassResolver is an optional extension of Hierarchy. When the oracle
// implements it, merges of two unrelated reference types walk the superclass
// chain to their closest common superclass instead of widening to Object.
type SuperclassResolver interface {
	Superclass(name string) (string, bool)
}

const objectName = "java/lang/Object"

// equalityHierarchy is used when no oracle is injected: a class is a subtype
// only of itself and of java/lang/Object.
type equalityHierarchy struct{}

func (equalityHierarchy) IsSubtype(child, parent string) bool {
	return child == parent || parent == objectName
}

// ClassInfo is one entry of a StaticHierarchy.
type ClassInfo struct {
	Name       string
	Super      string
	Interfaces []string
}

// StaticHierarchy is an immutable in-memory class graph. It is safe for
// concurrent use once built.
type StaticHierarchy struct {
	classes map[string]ClassInfo
}

// NewStaticHierarchy builds a hierarchy from class descriptions. Classes
// without a super (other than java/lang/Object itself) extend Object.
func NewStaticHierarchy(classes ...ClassInfo) *StaticHierarchy {
	h := &StaticHierarchy{classes: make(map[string]ClassInfo, len(classes))}
	for _, c := range classes {
		if c.Super == "" && c.Name != objectName {
			c.Super = objectName
		}
		h.classes[c.Name] = c
	}
	return h
}

// Lookup returns the class description if the class is known.
func (h *StaticHierarchy) Lookup(name string) (ClassInfo, bool) {
	c, ok := h.classes[name]
	return c, ok
}

// Len returns the number of known classes.
func (h *StaticHierarchy) Len() int { return len(h.classes) }

// IsSubtype walks superclasses and interfaces breadth-first.
func (h *StaticHierarchy) IsSubtype(child, parent string) bool {
	if child == parent || parent == objectName {
		return true
	}
	seen := map[string]bool{child: true}
	queue := []string{child}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		c, ok := h.classes[name]
		if !ok {
			continue
		}
		next := make([]string, 0, len(c.Interfaces)+1)
		if c.Super != "" {
			next = append(next, c.Super)
		}
		next = append(next, c.Interfaces...)
		for _, n := range next {
			if n == parent {
				return true
			}
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return false
}

// Superclass implements SuperclassResolver.
func (h *StaticHierarchy) Superclass(name string) (string, bool) {
	c, ok := h.classes[name]
	if !ok || c.Super == "" {
		return "", false
	}
	return c.Super, true
}

// commonSuperclass finds the closest shared superclass of a and b, if the
// oracle can walk superclass chains.
func commonSuperclass(h Hierarchy, a, b string) (string, bool) {
	r, ok := h.(SuperclassResolver)
	if !ok {
		return "", false
	}
	chain := map[string]bool{}
	for name, steps := a, 0; steps < 256; steps++ {
		chain[name] = true
		super, ok := r.Superclass(name)
		if !ok {
			break
		}
		name = super
	}
	for name, steps := b, 0; steps < 256; steps++ {
		if chain[name] {
			return name, true
		}
		super, ok := r.Superclass(name)
		if !ok {
			break
		}
		name = super
	}
	return "", false
}
