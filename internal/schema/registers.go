package schema

import "fmt"

const (
	// UserCodeSelector is the ring 3 code segment selector.
	UserCodeSelector uint32 = 0x1B

	// UserDataSelector is the ring 3 data and stack segment selector.
	UserDataSelector uint32 = 0x23

	// FlagsInterruptEnable is the IF bit of EFLAGS.
	FlagsInterruptEnable uint32 = 0x200

	// FlagsReserved is the always-set bit 1 of EFLAGS.
	FlagsReserved uint32 = 0x2
)

// Registers is the register snapshot pushed by the interrupt entry stubs
// before a handler runs, in push order. Handlers write their result back
// into EAX.
type Registers struct {
	DS                 uint32
	EDI, ESI, EBP, ESP uint32
	EBX, EDX, ECX, EAX uint32
	IntNo, ErrCode     uint32
	EIP, CS, EFlags    uint32
	UserESP, SS        uint32

	// CR2 holds the faulting address of a page fault.
	CR2 uint32
}

// SetResult stores a signed result in the accumulator.
func (r *Registers) SetResult(v int32) {
	r.EAX = uint32(v) //nolint:gosec
}

// Result returns the accumulator as a signed value.
func (r *Registers) Result() int32 {
	return int32(r.EAX) //nolint:gosec
}

// IRetFrame is the synthetic frame pushed before an iret into user mode.
type IRetFrame struct {
	SS     uint32
	ESP    uint32
	EFlags uint32
	CS     uint32
	EIP    uint32
}

func (f IRetFrame) String() string {
	return fmt.Sprintf("ss=%#x esp=%#x eflags=%#x cs=%#x eip=%#x", f.SS, f.ESP, f.EFlags, f.CS, f.EIP)
}

// OutcomeKind tells the interrupt layer what to do after a handler ran.
type OutcomeKind int

const (
	// Resume returns to the trapping task with the (updated) registers.
	Resume OutcomeKind = iota

	// Switch abandons the trapping context and enters another task through
	// the privilege transition. It never returns to the trapping task.
	Switch

	// Halt stops the processor permanently.
	Halt
)

func (k OutcomeKind) String() string {
	switch k {
	case Resume:
		return "resume"
	case Switch:
		return "switch"
	case Halt:
		return "halt"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of handling one interrupt.
type Outcome struct {
	Kind   OutcomeKind
	Task   int
	Frame  IRetFrame
	Reason string
}

// ResumeOutcome returns to the trapping task.
func ResumeOutcome() Outcome {
	return Outcome{Kind: Resume, Task: -1}
}

// HaltOutcome stops the machine for the given reason.
func HaltOutcome(reason string) Outcome {
	return Outcome{Kind: Halt, Task: -1, Reason: reason}
}
