// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package threadapi implements the thread-API classifier: a
// name-based map from a callee symbol to a thread-operation kind,
// plus accessors that pick the relevant argument out of a callsite
// for each kind. The vocabulary covers the C pthread surface
// (reachable through cgo bridges) and additionally the Go standard
// library's own concurrency primitives (sync.Mutex, sync.RWMutex,
// sync.WaitGroup, sync.Cond) so the classifier has something real to
// classify in an all-Go program.
package threadapi

import "golang.org/x/tools/go/ssa"

// Kind is the thread-operation kind a callee symbol classifies to.
type Kind int

const (
	None Kind = iota
	Fork
	Join
	Detach
	Acquire
	TryAcquire
	Release
	Exit
	Cancel
	CondWait
	CondSignal
	CondBroadcast
	MutexInit
	MutexDestroy
	CondvarInit
	CondvarDestroy
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Fork:
		return "fork"
	case Join:
		return "join"
	case Detach:
		return "detach"
	case Acquire:
		return "acquire"
	case TryAcquire:
		return "try_acquire"
	case Release:
		return "release"
	case Exit:
		return "exit"
	case Cancel:
		return "cancel"
	case CondWait:
		return "cond_wait"
	case CondSignal:
		return "cond_signal"
	case CondBroadcast:
		return "cond_broadcast"
	case MutexInit:
		return "mutex_init"
	case MutexDestroy:
		return "mutex_destroy"
	case CondvarInit:
		return "condvar_init"
	case CondvarDestroy:
		return "condvar_destroy"
	default:
		return "none"
	}
}

// posixTable maps bare pthread C-API names, recognized when a target
// program still contains calls through a cgo bridge.
var posixTable = map[string]Kind{
	"pthread_create":         Fork,
	"pthread_join":           Join,
	"pthread_detach":         Detach,
	"pthread_mutex_lock":     Acquire,
	"pthread_mutex_trylock":  TryAcquire,
	"pthread_mutex_unlock":   Release,
	"pthread_exit":           Exit,
	"pthread_cancel":         Cancel,
	"pthread_cond_wait":      CondWait,
	"pthread_cond_signal":    CondSignal,
	"pthread_cond_broadcast": CondBroadcast,
	"pthread_mutex_init":     MutexInit,
	"pthread_mutex_destroy":  MutexDestroy,
	"pthread_cond_init":      CondvarInit,
	"pthread_cond_destroy":   CondvarDestroy,
}

// stdlibTable maps the RelString form of the Go standard library's own
// sync primitives onto the same vocabulary. A `go` statement is always
// classified Fork structurally by the builder -- it needs no entry
// here, since *ssa.Go is a dedicated SSA instruction, not a named call.
var stdlibTable = map[string]Kind{
	"(*sync.Mutex).Lock":      Acquire,
	"(*sync.Mutex).TryLock":   TryAcquire,
	"(*sync.Mutex).Unlock":    Release,
	"(*sync.RWMutex).Lock":    Acquire,
	"(*sync.RWMutex).TryLock": TryAcquire,
	"(*sync.RWMutex).Unlock":  Release,
	"(*sync.RWMutex).RLock":   Acquire,
	"(*sync.RWMutex).RUnlock": Release,
	"(*sync.WaitGroup).Wait":  Join,
	"(*sync.Cond).Wait":       CondWait,
	"(*sync.Cond).Signal":     CondSignal,
	"(*sync.Cond).Broadcast":  CondBroadcast,
}

// Classify returns the thread-operation kind of a callee symbol name,
// or None if name is not recognized. name is expected in the RelString
// form ssa.Function.RelString(nil) produces for methods
// ("(*sync.Mutex).Lock") or the bare symbol name for extern C functions.
func Classify(name string) Kind {
	if k, ok := posixTable[name]; ok {
		return k
	}
	if k, ok := stdlibTable[name]; ok {
		return k
	}
	return None
}

// ---------- callsite accessors ----------
//
// These operate on the Common() call data of a direct call instruction
// (never a *ssa.Go -- fork via `go f(x)` is handled structurally by
// the builder without consulting these accessors at all; they exist
// for the cgo-bridge pthread_create/pthread_join case, where the
// thread-creation call is an ordinary *ssa.Call).

// ForkedThreadArg returns the argument that receives the created
// thread's identifier: pthread_create's first argument (the
// `pthread_t *` out-parameter). There is no Go-level analogue for a
// `go` statement, which has no thread-handle argument at all.
func ForkedThreadArg(cs ssa.CallInstruction) ssa.Value {
	return argAt(cs, 0)
}

// ForkedRoutineArg returns the function value being spawned:
// pthread_create's third argument (`start_routine`).
func ForkedRoutineArg(cs ssa.CallInstruction) ssa.Value {
	return argAt(cs, 2)
}

// ForkedActualArg returns the single argument value threaded through
// to the spawned routine: pthread_create's fourth argument (`arg`).
// This is deliberately a separate accessor from ForkedRoutineArg (the
// callee being spawned); conflating the two loses the distinction
// between "what runs" and "what it receives".
func ForkedActualArg(cs ssa.CallInstruction) ssa.Value {
	return argAt(cs, 3)
}

// JoinedThreadArg returns the thread-handle argument of a join call:
// pthread_join's first argument, or the receiver of
// (*sync.WaitGroup).Wait.
func JoinedThreadArg(cs ssa.CallInstruction) ssa.Value {
	return receiverOrArg(cs, 0)
}

// JoinedRetArg returns the `void **retval` out-parameter of
// pthread_join (its second argument), or nil for APIs with no
// analogous return-value channel (sync.WaitGroup.Wait has none).
func JoinedRetArg(cs ssa.CallInstruction) ssa.Value {
	return argAt(cs, 1)
}

// LockValue returns the mutex/condvar value a lock/condvar operation
// acts on: the receiver of a method call, or the first argument of a
// pthread_mutex_*/pthread_cond_* call.
func LockValue(cs ssa.CallInstruction) ssa.Value {
	return receiverOrArg(cs, 0)
}

func argAt(cs ssa.CallInstruction, i int) ssa.Value {
	args := cs.Common().Args
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

// receiverOrArg returns the receiver of a bound-method call
// (Common().Value when invoking through an interface, or Args[0] for
// a method called as Pkg.(*T).Method(recv, ...)), falling back to a
// positional C-style argument for free functions.
func receiverOrArg(cs ssa.CallInstruction, posArg int) ssa.Value {
	common := cs.Common()
	if common.IsInvoke() {
		return common.Value
	}
	return argAt(cs, posArg)
}
