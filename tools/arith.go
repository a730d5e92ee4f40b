package tools

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/petasbytes/toolchat/internal/safety"
)

type BinaryInput struct {
	A int64 `json:"a" jsonschema_description:"First integer operand."`
	B int64 `json:"b" jsonschema_description:"Second integer operand."`
}

type PowerInput struct {
	A int64 `json:"a" jsonschema_description:"Base."`
	B int64 `json:"b" jsonschema_description:"Non-negative exponent."`
}

var BinaryInputSchema = GenerateSchema[BinaryInput]()
var PowerInputSchema = GenerateSchema[PowerInput]()

var AddDefinition = ToolDefinition{
	Name:        "add",
	Description: "Add two integers.",
	InputSchema: BinaryInputSchema,
	Function:    binary(safety.Add),
}

var SubtractDefinition = ToolDefinition{
	Name:        "subtract",
	Description: "Subtract the second integer from the first.",
	InputSchema: BinaryInputSchema,
	Function:    binary(safety.Sub),
}

var MultiplyDefinition = ToolDefinition{
	Name:        "multiply",
	Description: "Multiply two integers.",
	InputSchema: BinaryInputSchema,
	Function:    binary(safety.Mul),
}

var DivideDefinition = ToolDefinition{
	Name:        "divide",
	Description: "Divide the first integer by the second, truncating toward zero. Fails when the divisor is zero.",
	InputSchema: BinaryInputSchema,
	Function:    binary(safety.Div),
}

var RemainderDefinition = ToolDefinition{
	Name:        "remainder",
	Description: "Remainder of dividing the first integer by the second (sign follows the dividend). Fails when the divisor is zero.",
	InputSchema: BinaryInputSchema,
	Function:    binary(safety.Rem),
}

var PowerDefinition = ToolDefinition{
	Name:        "power",
	Description: "Raise an integer base to a non-negative integer exponent.",
	InputSchema: PowerInputSchema,
	Function:    binary(safety.Pow),
}

// operands mirrors BinaryInput with pointers so an absent operand is told
// apart from zero.
type operands struct {
	A *int64 `json:"a"`
	B *int64 `json:"b"`
}

// binary adapts a checked int64 operation to the tool calling convention.
// The result is the decimal string of the value.
func binary(op func(a, b int64) (int64, error)) func(json.RawMessage) (string, error) {
	return func(input json.RawMessage) (string, error) {
		var in operands
		if err := decodeStrict(input, &in); err != nil {
			return "", safety.ToolError{Code: safety.CodeInvalidInput, Message: err.Error()}
		}
		if in.A == nil || in.B == nil {
			return "", safety.ToolError{Code: safety.CodeInvalidInput, Message: "a and b are required"}
		}
		v, err := op(*in.A, *in.B)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	}
}

func decodeStrict(input json.RawMessage, v any) error {
	if len(bytes.TrimSpace(input)) == 0 {
		input = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
