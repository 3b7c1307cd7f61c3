package common

import (
	"context"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
)

// LoadFunc turns command arguments into an operation input.
type LoadFunc[Input any] func(fp *FileProcessor, args []string) (Input, error)

// OperationFunc runs one pipeline operation.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// LogDetailsFunc logs the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// RunCommand loads the input files, runs the operation and writes the
// formatted result.
func RunCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	load LoadFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger, cmdConfig.Ingest)
	outputHandler := NewOutputHandler(logger)

	if err := fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	input, err := load(fileProcessor, args)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

// LoadSingleDocument ingests the only argument.
func LoadSingleDocument(fp *FileProcessor, args []string) (ingest.Document, error) {
	return fp.LoadDocument(args[0])
}
