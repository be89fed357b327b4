package rpc

import "fmt"

// Validate resolves the command's target in reg and binds the payload
// arguments against the service schema. Every binding slot is cleared
// before the scan, so slots past the bound count never expose data from
// an earlier message.
func Validate(cmd *Command, reg *Registry) error {
	if cmd == nil || reg == nil {
		return ValidationError{Reason: "nil command or registry", Err: ErrNullPointer}
	}
	cmd.clearBindings()
	if cmd.state != StateReceived {
		cmd.state = StateInvalid
		return ValidationError{Service: string(cmd.target), Reason: "command not decoded", Err: ErrNullPointer}
	}

	if reg.Len() == 0 {
		cmd.state = StateInvalid
		return ValidationError{Service: string(cmd.target), Reason: "no services registered", Err: ErrNullPointer}
	}

	svc, ok := lookup(reg, cmd.target)
	if !ok {
		cmd.state = StateInvalid
		return ValidationError{Service: string(cmd.target), Reason: "unknown service", Err: ErrServiceNotFound}
	}
	schema := svc.Schema

	payload := cmd.payload
	if len(payload) > schema.maxMessageLength {
		cmd.state = StateInvalid
		return ValidationError{
			Service: svc.Name,
			Reason:  lengthReason(len(payload), schema.maxMessageLength),
			Err:     ErrInvalidMessageLength,
		}
	}

	run := 0
	argIndex := 0
	for i := 0; i <= len(payload); i++ {
		if i < len(payload) && payload[i] != schema.delimiter {
			run++
			continue
		}
		if argIndex >= schema.maxArgs {
			cmd.clearBindings()
			cmd.state = StateInvalid
			return ValidationError{
				Service: svc.Name,
				Index:   argIndex,
				Reason:  "more arguments than schema allows",
				Err:     ErrInvalidArgumentCount,
			}
		}
		spec := schema.args[argIndex]
		if run > spec.MaxSize {
			cmd.clearBindings()
			cmd.state = StateInvalid
			return ValidationError{
				Service: svc.Name,
				Index:   argIndex,
				ArgID:   spec.ID,
				Reason:  lengthReason(run, spec.MaxSize),
				Err:     ErrInvalidArgumentLength,
			}
		}
		cmd.bindings[argIndex] = Binding{Offset: i - run, Length: run}
		run = 0
		argIndex++
	}

	cmd.argCount = argIndex
	cmd.schema = schema
	cmd.service = svc
	cmd.state = StateReady
	return nil
}

func lengthReason(got, limit int) string {
	return fmt.Sprintf("length %d exceeds %d", got, limit)
}
