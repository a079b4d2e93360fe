package codegen

import (
	"fmt"
	"strings"

	"github.com/fsmkit/go-fsmkit/model"
)

// genContext holds everything the standard template needs, precomputed so
// the template itself stays declarative.
type genContext struct {
	Package     string
	MachineName string
	NumStates   int
	Initial     string // const name
	States      []stateInfo
	Events      []eventInfo
	Rules       []ruleInfo
	Choices     []choiceInfo
}

type stateInfo struct {
	Name      string
	ConstName string
	EntryLit  string
	ExitLit   string
}

type eventInfo struct {
	Name      string
	ConstName string
}

type ruleInfo struct {
	SrcConst   string
	EventConst string
	GuardLit   string
	Dst        int
	ActionsLit string
	Arrow      string
}

type choiceInfo struct {
	Name     string
	Node     int
	Branches []branchInfo
}

type branchInfo struct {
	CondLit    string
	IsElse     bool
	Dst        int
	ActionsLit string
}

// buildContext flattens the dispatch table into template data. Node indexes
// cover states first, then choices, so a rule destination is an int that
// either names a state directly or routes into the choice array.
func buildContext(def *model.Definition, table *Table, pkg string) (*genContext, error) {
	if pkg == "" {
		pkg = sanitizePackage(def.Name)
	}

	ctx := &genContext{
		Package:     pkg,
		MachineName: def.Name,
		NumStates:   len(table.States),
	}

	node := make(map[string]int, len(table.States)+len(table.Choices))
	names := newNamer()
	for i, s := range table.States {
		node[s.ID] = i
		ctx.States = append(ctx.States, stateInfo{
			Name:      s.ID,
			ConstName: names.unique("State" + toConstName(s.ID)),
			EntryLit:  stringSliceLit(s.Entry),
			ExitLit:   stringSliceLit(s.Exit),
		})
	}
	for i, c := range table.Choices {
		node[c.ID] = len(table.States) + i
	}

	initial, ok := node[table.Initial]
	if !ok || initial >= len(table.States) {
		return nil, fmt.Errorf("initial state %q is not a declared state (validate before generating)", table.Initial)
	}
	ctx.Initial = ctx.States[initial].ConstName

	eventConst := make(map[string]string, len(table.Events))
	for _, e := range table.Events {
		info := eventInfo{Name: e, ConstName: names.unique("Event" + toConstName(e))}
		eventConst[e] = info.ConstName
		ctx.Events = append(ctx.Events, info)
	}

	for _, r := range table.Rows {
		src, ok := node[r.Source]
		if !ok || src >= len(table.States) {
			return nil, fmt.Errorf("transition source %q is not a declared state", r.Source)
		}
		dst, ok := node[r.Target]
		if !ok {
			return nil, fmt.Errorf("transition target %q is not declared", r.Target)
		}
		ev, ok := eventConst[r.Event]
		if !ok {
			// Trigger-less transitions never fire; validation warns about
			// them, and the kernel has no event value to key them on.
			continue
		}
		ctx.Rules = append(ctx.Rules, ruleInfo{
			SrcConst:   ctx.States[src].ConstName,
			EventConst: ev,
			GuardLit:   fmt.Sprintf("%q", r.Guard),
			Dst:        dst,
			ActionsLit: stringSliceLit(r.Actions),
			Arrow:      arrowComment(r),
		})
	}

	for i, c := range table.Choices {
		info := choiceInfo{Name: c.ID, Node: len(table.States) + i}
		for _, b := range c.Branches {
			dst, ok := node[b.Target]
			if !ok {
				return nil, fmt.Errorf("choice %q branch target %q is not declared", c.ID, b.Target)
			}
			info.Branches = append(info.Branches, branchInfo{
				CondLit:    fmt.Sprintf("%q", b.Cond),
				IsElse:     b.Else,
				Dst:        dst,
				ActionsLit: stringSliceLit(b.Actions),
			})
		}
		ctx.Choices = append(ctx.Choices, info)
	}

	return ctx, nil
}

// arrowComment reproduces the source arrow for a rule comment.
func arrowComment(r Row) string {
	s := fmt.Sprintf("%s --> %s : %s", r.Source, r.Target, r.Event)
	if r.Guard != "" {
		s += fmt.Sprintf(" [%s]", r.Guard)
	}
	return s
}

// stringSliceLit renders a Go literal for an action list, nil when empty.
func stringSliceLit(ss []string) string {
	if len(ss) == 0 {
		return "nil"
	}
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

// toConstName converts an ID like "red_blink" to "RedBlink" for Go
// constants.
func toConstName(id string) string {
	parts := strings.Split(id, "_")
	var b strings.Builder
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	name := b.String()
	if name == "" {
		name = "X"
	}
	return name
}

// namer deduplicates constant names that collapse to the same identifier
// (for example "red_light" and "RedLight").
type namer struct {
	seen map[string]int
}

func newNamer() *namer {
	return &namer{seen: make(map[string]int)}
}

func (n *namer) unique(name string) string {
	count := n.seen[name]
	n.seen[name] = count + 1
	if count == 0 {
		return name
	}
	return fmt.Sprintf("%s%d", name, count+1)
}

// sanitizePackage lowers a machine name into a legal package name.
func sanitizePackage(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	pkg := b.String()
	if pkg == "" || pkg[0] >= '0' && pkg[0] <= '9' {
		pkg = "fsm" + pkg
	}
	return pkg
}
