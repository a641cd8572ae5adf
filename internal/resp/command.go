package resp

// RootCommand classifies the top-level verb family a Command belongs to,
// so dispatch and reducers can branch without re-parsing the verb string.
type RootCommand int

const (
	RootRead RootCommand = iota
	RootDel
	RootAggregate
	RootProfile
)

// AnyShard is the TargetShard value used for fanout commands: the command
// has no single owning shard and must be cloned once per shard before
// dispatch.
const AnyShard = -1

// Command is an ordered, immutable (once queued) sequence of opaque
// argument byte strings with a target-shard hint and protocol version.
//
// Once a Command is handed to a Connection's send, its Args must not be
// mutated; anything that needs a per-shard variant (slot injection, cursor
// id substitution, CURSOR DEL rewriting) must Clone first.
type Command struct {
	args []([]byte)

	TargetShard     int
	ProtocolVersion int
	ForCursor       bool
	ForProfiling    bool
	Depleted        bool
	Root            RootCommand

	// slotArg indexes the argument reserved for per-shard slot-range
	// injection by the dispatcher, or -1 if this command carries none.
	slotArg int
}

// New builds a Command from a verb and its arguments. The verb is always
// args[0]; protocol version defaults to 2 and TargetShard defaults to
// AnyShard until the dispatcher assigns one.
func New(verb string, args ...[]byte) *Command {
	all := make([][]byte, 0, len(args)+1)
	all = append(all, []byte(verb))
	all = append(all, args...)
	return &Command{
		args:            all,
		TargetShard:     AnyShard,
		ProtocolVersion: 2,
		slotArg:         -1,
	}
}

// Verb returns the command's first argument as a string.
func (c *Command) Verb() string {
	if len(c.args) == 0 {
		return ""
	}
	return string(c.args[0])
}

// Args returns the command's argument vector. Callers must not modify the
// returned slice or its elements; Clone first.
func (c *Command) Args() [][]byte {
	return c.args
}

// Clone returns a deep copy of the command, safe to mutate independently
// of the original (per-shard slot injection, cursor id substitution,
// CURSOR DEL rewriting all clone first).
func (c *Command) Clone() *Command {
	cp := *c
	cp.args = make([][]byte, len(c.args))
	for i, a := range c.args {
		b := make([]byte, len(a))
		copy(b, a)
		cp.args[i] = b
	}
	return &cp
}

// SetArg replaces the argument at index i in place. Only legal on a
// Command that has already been Cloned for a specific shard — never on a
// Command still shared across a fanout.
func (c *Command) SetArg(i int, v []byte) {
	c.args[i] = v
}

// ReserveSlotArg marks which argument index will receive the per-shard
// slot range at dispatch time, and appends a placeholder for it.
func (c *Command) ReserveSlotArg(placeholder []byte) {
	c.args = append(c.args, placeholder)
	c.slotArg = len(c.args) - 1
}

// InjectSlotRange writes the shard's slot range into the reserved
// argument slot. No-op if ReserveSlotArg was never called.
func (c *Command) InjectSlotRange(encoded []byte) {
	if c.slotArg < 0 {
		return
	}
	c.args[c.slotArg] = encoded
}

// RewriteVerb replaces args[0] in place, used to turn a client verb into
// its shard-private form (e.g. "FT.SEARCH" into "_FT.SEARCH") without
// touching the rest of the argument vector.
func (c *Command) RewriteVerb(verb string) {
	c.args[0] = []byte(verb)
}
