package bridge

import (
	"encoding/json"

	"github.com/ginjaninja78/entrypilot/internal/types"
)

// Commands understood by the host.
const (
	CommandSelectFile  = "select_excel_file_dialog"
	CommandProcessFile = "process_excel_file"
)

// Response statuses sent by the host.
const (
	StatusDataProcessed = "excel_data_processed"
	StatusSuccess       = "success"
	StatusError         = "error"
)

// Messages sent by the host.
const (
	MsgMalformed       = "Malformed JSON received."
	MsgSelectCancelled = "File selection was cancelled or failed."
	MsgSelectFailed    = "Error occurred during file selection dialog."
	MsgPathMissing     = "File path not provided."
	MsgInvalidParams   = "Invalid parameters for processing Excel file."
	MsgUnexpected      = "An unexpected error occurred in the native host."
)

// Command is a request sent to the host.
type Command struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ProcessParams are the parameters of CommandProcessFile.
type ProcessParams struct {
	FilePath string `json:"filePath"`
}

// HostResponse is the host's answer to one command.
type HostResponse struct {
	Status          string         `json:"status"`
	Message         string         `json:"message,omitempty"`
	ReceivedCommand string         `json:"received_command,omitempty"`
	FilePath        string         `json:"filePath,omitempty"`
	ExcelData       []types.Record `json:"excelData,omitempty"`
}

// NewProcessCommand builds a CommandProcessFile request for path.
func NewProcessCommand(path string) Command {
	params, _ := json.Marshal(ProcessParams{FilePath: path})
	return Command{Command: CommandProcessFile, Params: params}
}
