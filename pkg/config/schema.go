package config

import "fmt"

// ValidateRecord checks a record against its kind's schema and reports every
// field-level violation, not just the first.
func ValidateRecord(rec *Record) []FieldError {
	var errs []FieldError

	if rec.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "is required"})
	}

	switch rec.Type {
	case TypeAgent:
		errs = append(errs, validateAgent(rec.Agent)...)
	case TypeLLM:
		errs = append(errs, validateLLM(rec.LLM)...)
	case TypeMCPServer:
		errs = append(errs, validateMCPServer(rec.MCPServer)...)
	case TypeLinearWorkflow:
		errs = append(errs, validateLinearWorkflow(rec.LinearWorkflow)...)
	case TypeCustomWorkflow:
		errs = append(errs, validateCustomWorkflow(rec.CustomWorkflow)...)
	default:
		errs = append(errs, FieldError{Field: "type", Message: fmt.Sprintf("unknown component type %q", rec.Type)})
	}

	return errs
}

func validateAgent(s *AgentSpec) []FieldError {
	var errs []FieldError
	if s == nil {
		return []FieldError{{Field: "agent", Message: "spec is missing"}}
	}
	if s.LLMConfigID != "" && s.Model != "" {
		errs = append(errs, FieldError{Field: "llm_config_id", Message: "mutually exclusive with inline model settings"})
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		errs = append(errs, FieldError{Field: "temperature", Message: "must be between 0 and 2"})
	}
	if s.MaxTokens < 0 {
		errs = append(errs, FieldError{Field: "max_tokens", Message: "must not be negative"})
	}
	if s.MaxIterations < 0 {
		errs = append(errs, FieldError{Field: "max_iterations", Message: "must not be negative"})
	}
	for i, srv := range s.MCPServers {
		if srv == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("mcp_servers[%d]", i), Message: "server name must not be empty"})
		}
	}
	return errs
}

func validateLLM(s *LLMSpec) []FieldError {
	var errs []FieldError
	if s == nil {
		return []FieldError{{Field: "llm", Message: "spec is missing"}}
	}
	if s.Model == "" {
		errs = append(errs, FieldError{Field: "model", Message: "is required"})
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		errs = append(errs, FieldError{Field: "temperature", Message: "must be between 0 and 2"})
	}
	if s.MaxTokens < 0 {
		errs = append(errs, FieldError{Field: "max_tokens", Message: "must not be negative"})
	}
	return errs
}

func validateMCPServer(s *MCPServerSpec) []FieldError {
	var errs []FieldError
	if s == nil {
		return []FieldError{{Field: "mcp_server", Message: "spec is missing"}}
	}
	if _, err := s.Transport(); err != nil {
		errs = append(errs, FieldError{Field: "transport", Message: err.Error()})
	}
	if len(s.Capabilities) == 0 {
		errs = append(errs, FieldError{Field: "capabilities", Message: "is required"})
	}
	for i, c := range s.Capabilities {
		switch c {
		case CapabilityTools, CapabilityPrompts, CapabilityResources:
		default:
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capabilities[%d]", i),
				Message: fmt.Sprintf("unknown capability %q (want tools, prompts, or resources)", c),
			})
		}
	}
	if s.CallTimeout < 0 {
		errs = append(errs, FieldError{Field: "call_timeout", Message: "must not be negative"})
	}
	return errs
}

func validateLinearWorkflow(s *LinearWorkflowSpec) []FieldError {
	var errs []FieldError
	if s == nil {
		return []FieldError{{Field: "linear_workflow", Message: "spec is missing"}}
	}
	if len(s.Steps) == 0 {
		errs = append(errs, FieldError{Field: "steps", Message: "must contain at least one step"})
	}
	for i, step := range s.Steps {
		if step.Name == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("steps[%d].name", i), Message: "is required"})
		}
		if step.Type != "" {
			if _, err := ParseComponentType(step.Type); err != nil {
				errs = append(errs, FieldError{Field: fmt.Sprintf("steps[%d].type", i), Message: err.Error()})
			}
		}
	}
	return errs
}

func validateCustomWorkflow(s *CustomWorkflowSpec) []FieldError {
	var errs []FieldError
	if s == nil {
		return []FieldError{{Field: "custom_workflow", Message: "spec is missing"}}
	}
	if s.ModulePath == "" {
		errs = append(errs, FieldError{Field: "module_path", Message: "is required"})
	}
	if s.EntryPoint == "" {
		errs = append(errs, FieldError{Field: "entry_point", Message: "is required"})
	}
	return errs
}
