package analyzer

// ScopeKind discriminates the three kinds of lexical scope a Scope can
// represent, per §4.2.
type ScopeKind int

const (
	// ScopeGlobal is the single top-level scope of a program.
	ScopeGlobal ScopeKind = iota

	// ScopeFunction is the scope introduced by a def or lambda body.
	ScopeFunction

	// ScopeBlock is the scope introduced by every begin form other than the
	// program's top-level one, whether nested in a function or not.
	ScopeBlock
)

// AllocKind names where a resolved name's storage lives, per §4.2.
type AllocKind int

const (
	// AllocGlobal names a slot in the global environment.
	AllocGlobal AllocKind = iota

	// AllocLocal names a slot on the operand stack relative to the current
	// frame's base pointer.
	AllocLocal

	// AllocCell names a heap-boxed slot shared with at least one nested
	// function that captures it.
	AllocCell
)

// Scope is one node of the static scope tree built by Analyze: a table of
// how each name visible in it is allocated, plus the bookkeeping needed to
// promote a name to a Cell after the fact when a nested function is found to
// capture it.
type Scope struct {
	Kind   ScopeKind
	Parent *Scope

	AllocInfo map[string]AllocKind

	// Free lists, in first-capture order, the names this scope's function
	// must receive as cells from its enclosing scope because something
	// inside (a further-nested function) captures them.
	Free []string

	// Cells lists, in first-promotion order, the names this scope owns as
	// cells — locals or parameters that some nested function captures.
	Cells []string
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{Kind: kind, Parent: parent, AllocInfo: map[string]AllocKind{}}
}

// AddLocal records name as a plain binding of this scope: Global if the
// scope itself is the global scope, Local otherwise.
func (s *Scope) AddLocal(name string) {
	if s.Kind == ScopeGlobal {
		s.AllocInfo[name] = AllocGlobal
	} else {
		s.AllocInfo[name] = AllocLocal
	}
}

func pushBackIfNotPresent(v []string, name string) []string {
	for _, n := range v {
		if n == name {
			return v
		}
	}
	return append(v, name)
}

func (s *Scope) addCell(name string) {
	s.Cells = pushBackIfNotPresent(s.Cells, name)
	s.AllocInfo[name] = AllocCell
}

func (s *Scope) addFree(name string) {
	s.Free = pushBackIfNotPresent(s.Free, name)
	s.AllocInfo[name] = AllocCell
}

// maybePromote resolves name starting at s and, if some ancestor function
// scope owns it while an intervening function scope closes over it,
// promotes the chain of intervening scopes so the name is captured as a
// Cell instead of copied by value. It is called for every symbol reference
// (read or write target) encountered during analysis.
func (s *Scope) maybePromote(name string) error {
	initKind := AllocLocal
	if s.Kind == ScopeGlobal {
		initKind = AllocGlobal
	}
	if k, ok := s.AllocInfo[name]; ok {
		initKind = k
	}
	if initKind == AllocCell {
		return nil
	}

	owner, kind, err := s.resolve(name, initKind)
	if err != nil {
		return err
	}

	s.AllocInfo[name] = kind

	if kind == AllocCell {
		s.promote(name, owner)
	}
	return nil
}

// promote makes owner the canonical home of name as a Cell, and marks every
// scope from s up to (but not including) owner as needing to receive name as
// a free variable from its parent.
func (s *Scope) promote(name string, owner *Scope) {
	owner.addCell(name)
	for sc := s; sc != owner; sc = sc.Parent {
		sc.addFree(name)
	}
}

// resolve walks up the scope chain from s looking for an existing binding of
// name. Crossing a function-scope boundary while searching upgrades the
// tentative allocation kind to Cell (the name must be captured, not
// re-read off some ancestor's stack frame which no longer exists at call
// time); reaching the global scope's child downgrades it back to Global.
func (s *Scope) resolve(name string, kind AllocKind) (*Scope, AllocKind, error) {
	if _, ok := s.AllocInfo[name]; ok {
		return s, kind, nil
	}

	if s.Kind == ScopeFunction {
		kind = AllocCell
	}

	if s.Parent == nil {
		return nil, 0, unresolvedName(name)
	}

	if s.Parent.Kind == ScopeGlobal {
		kind = AllocGlobal
	}

	return s.Parent.resolve(name, kind)
}

// String renders an AllocKind for diagnostics and disassembly annotations.
func (k AllocKind) String() string {
	switch k {
	case AllocGlobal:
		return "global"
	case AllocLocal:
		return "local"
	case AllocCell:
		return "cell"
	default:
		return "unknown"
	}
}
