package bytecode

import "fmt"

// TypeSlots returns the operand-stack width in slots of a single field
// descriptor: 2 for J and D, 0 for V, 1 for everything else.
func TypeSlots(desc string) (int, error) {
	if desc == "" {
		return 0, fmt.Errorf("empty type descriptor")
	}
	switch desc[0] {
	case 'J', 'D':
		return 2, nil
	case 'V':
		return 0, nil
	case 'B', 'C', 'F', 'I', 'S', 'Z', 'L', '[':
		return 1, nil
	}
	return 0, fmt.Errorf("bad type descriptor %q", desc)
}

// MethodArgTypes splits a method descriptor into its argument type
// descriptors and the return type descriptor.
func MethodArgTypes(desc string) ([]string, string, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", fmt.Errorf("bad method descriptor %q", desc)
	}
	var args []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		start := i
		for desc[i] == '[' {
			i++
			if i == len(desc) {
				return nil, "", fmt.Errorf("bad method descriptor %q", desc)
			}
		}
		switch desc[i] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			i++
		case 'L':
			for i < len(desc) && desc[i] != ';' {
				i++
			}
			if i == len(desc) {
				return nil, "", fmt.Errorf("bad method descriptor %q", desc)
			}
			i++
		default:
			return nil, "", fmt.Errorf("bad method descriptor %q", desc)
		}
		args = append(args, desc[start:i])
	}
	if i == len(desc) || desc[i] != ')' || i+1 == len(desc) {
		return nil, "", fmt.Errorf("bad method descriptor %q", desc)
	}
	return args, desc[i+1:], nil
}

// MethodDescriptorSlots returns the total argument width and the return
// width of a method descriptor, both in stack slots.
func MethodDescriptorSlots(desc string) (argSlots, retSlots int, err error) {
	args, ret, err := MethodArgTypes(desc)
	if err != nil {
		return 0, 0, err
	}
	for _, a := range args {
		n, err := TypeSlots(a)
		if err != nil {
			return 0, 0, err
		}
		argSlots += n
	}
	retSlots, err = TypeSlots(ret)
	if err != nil {
		return 0, 0, err
	}
	return argSlots, retSlots, nil
}
