package model

// Role names which half of a record a plotted point stands for.
type Role int

const (
	RoleInstruction Role = iota
	RoleOutput
)

// String returns the preview pane name for the role.
func (r Role) String() string {
	if r == RoleOutput {
		return "output"
	}
	return "instruction"
}

// Other returns the paired role.
func (r Role) Other() Role {
	if r == RoleOutput {
		return RoleInstruction
	}
	return RoleOutput
}

// InstructionView is the instruction half of a record as shown in the
// instruction table after a selection.
type InstructionView struct {
	InstructionX          float64 `json:"instruction_x"`
	InstructionY          float64 `json:"instruction_y"`
	Input                 string  `json:"input"`
	Instruction           string  `json:"instruction"`
	InstructionWordCount  int     `json:"instruction_word_count"`
	InstructionAvgWordLen float64 `json:"instruction_avg_word_len"`

	// Position is the index into the rendered series.
	Position int `json:"idx"`
	// Index is the stable record index.
	Index int `json:"record_idx"`
}

// OutputView is the output half of a record.
type OutputView struct {
	OutputX          float64 `json:"output_x"`
	OutputY          float64 `json:"output_y"`
	Output           string  `json:"output"`
	OutputWordCount  int     `json:"output_word_count"`
	OutputAvgWordLen float64 `json:"output_avg_word_len"`

	Position int `json:"idx"`
	Index    int `json:"record_idx"`
}

// InstructionViewOf builds the instruction view of r at the given rendered
// position. y is the plotted (offset) instruction y.
func InstructionViewOf(r Record, position int, y float64) InstructionView {
	return InstructionView{
		InstructionX:          r.InstructionX,
		InstructionY:          y,
		Input:                 r.Input,
		Instruction:           r.Instruction,
		InstructionWordCount:  r.InstructionWordCount,
		InstructionAvgWordLen: r.InstructionAvgWordLen,
		Position:              position,
		Index:                 r.Index,
	}
}

// OutputViewOf builds the output view of r at the given rendered position.
func OutputViewOf(r Record, position int) OutputView {
	return OutputView{
		OutputX:          r.OutputX,
		OutputY:          r.OutputY,
		Output:           r.Output,
		OutputWordCount:  r.OutputWordCount,
		OutputAvgWordLen: r.OutputAvgWordLen,
		Position:         position,
		Index:            r.Index,
	}
}
