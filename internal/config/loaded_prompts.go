package config

import (
	"sync"
)

var (
	loadedPromptsMu sync.RWMutex
	loadedPrompts   AllLoadedPrompts
)

// LoadedPromptSet holds prompt text read from files, one entry per AI call
type LoadedPromptSet struct {
	ParseResume    string
	ParseResumePDF string
	ExtractJobSpec string
	TailorResume   string
}

// OperationLoadedPrompts holds loaded prompts for a specific operation
type OperationLoadedPrompts struct {
	SystemPrompts LoadedPromptSet
	UserPrompts   LoadedPromptSet
}

// AllLoadedPrompts holds all loaded prompts for all operations
type AllLoadedPrompts struct {
	Global  OperationLoadedPrompts
	Parse   OperationLoadedPrompts
	JobSpec OperationLoadedPrompts
	Tailor  OperationLoadedPrompts
}

// GetPromptsForOperation returns a copy of the prompts loaded from files for
// an operation. Entries without an operation file fall back to the global
// file.
func GetPromptsForOperation(operationType string) OperationLoadedPrompts {
	loadedPromptsMu.RLock()
	defer loadedPromptsMu.RUnlock()

	var op OperationLoadedPrompts
	switch operationType {
	case OperationParse:
		op = loadedPrompts.Parse
	case OperationJobSpec:
		op = loadedPrompts.JobSpec
	case OperationTailor:
		op = loadedPrompts.Tailor
	default:
		return loadedPrompts.Global
	}

	return OperationLoadedPrompts{
		SystemPrompts: mergeLoaded(op.SystemPrompts, loadedPrompts.Global.SystemPrompts),
		UserPrompts:   mergeLoaded(op.UserPrompts, loadedPrompts.Global.UserPrompts),
	}
}

func mergeLoaded(op, global LoadedPromptSet) LoadedPromptSet {
	if op.ParseResume == "" {
		op.ParseResume = global.ParseResume
	}
	if op.ParseResumePDF == "" {
		op.ParseResumePDF = global.ParseResumePDF
	}
	if op.ExtractJobSpec == "" {
		op.ExtractJobSpec = global.ExtractJobSpec
	}
	if op.TailorResume == "" {
		op.TailorResume = global.TailorResume
	}
	return op
}

func setLoadedPrompts(p AllLoadedPrompts) {
	loadedPromptsMu.Lock()
	loadedPrompts = p
	loadedPromptsMu.Unlock()
}

// resetLoadedPrompts clears prompts loaded from files.
func resetLoadedPrompts() {
	setLoadedPrompts(AllLoadedPrompts{})
}
