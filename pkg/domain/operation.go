package domain

// Operation identifies a lifecycle point on a document instance.
//
// The built-in constants cover the document lifecycle Graft drives itself;
// any other string is a valid custom operation and flows through the same
// hook machinery (see Model.Execute).
type Operation string

const (
	// OpInit runs when a document is hydrated from raw storage data.
	OpInit Operation = "init"
	// OpValidate runs when a document is validated.
	OpValidate Operation = "validate"
	// OpSave runs when a document is persisted (insert or replace).
	OpSave Operation = "save"
	// OpRemove runs when a document is deleted.
	OpRemove Operation = "remove"
)

// Phase indicates on which side of the core action a hook executes.
type Phase string

const (
	// PhasePre hooks run before the operation's core action. A failing pre
	// hook vetoes the operation.
	PhasePre Phase = "pre"
	// PhasePost hooks run after a successful core action. A failing post
	// hook fails the operation without undoing the action.
	PhasePost Phase = "post"
)

// HookKind is the callback shape of a registered hook. The shape is fixed at
// registration time; the engine never inspects callback types during
// execution.
type HookKind string

const (
	// KindSync hooks signal completion by returning.
	KindSync HookKind = "sync"
	// KindNext hooks signal completion by invoking a continuation. The
	// engine waits for the continuation before starting the next hook.
	KindNext HookKind = "next"
	// KindAsync hooks signal completion through a returned channel. The
	// engine waits for the channel to deliver a value or close.
	KindAsync HookKind = "async"
)
