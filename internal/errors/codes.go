package errors

// Stable error codes for programmatic handling. Codes follow the
// ERR_<AREA>_<CONDITION> convention.
const (
	// Lexer
	ErrCodeUnterminatedString = "ERR_LEX_UNTERMINATED_STRING"
	ErrCodeUnterminatedTag    = "ERR_LEX_UNTERMINATED_TAG"
	ErrCodeUnterminatedExpr   = "ERR_LEX_UNTERMINATED_EXPRESSION"
	ErrCodeUnterminatedCode   = "ERR_LEX_UNTERMINATED_CODE_BLOCK"
	ErrCodeUnexpectedChar     = "ERR_LEX_UNEXPECTED_CHARACTER"

	// Parser
	ErrCodeUnexpectedToken  = "ERR_PARSE_UNEXPECTED_TOKEN"
	ErrCodeRootMismatch     = "ERR_PARSE_ROOT_MISMATCH"
	ErrCodeDuplicateSection = "ERR_PARSE_DUPLICATE_SECTION"
	ErrCodeMissingHandler   = "ERR_PARSE_MISSING_HANDLER"
	ErrCodeBadAttribute     = "ERR_PARSE_BAD_ATTRIBUTE"
	ErrCodeUnclosedTag      = "ERR_PARSE_UNCLOSED_TAG"

	// Validation
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"

	// Capabilities
	ErrCodeCapabilityDenied     = "ERR_CAPABILITY_DENIED"
	ErrCodeCapabilityUndeclared = "ERR_CAPABILITY_UNDECLARED"

	// Sandbox execution
	ErrCodeExecTimeout       = "ERR_EXEC_TIMEOUT"
	ErrCodeExecMemoryLimit   = "ERR_EXEC_MEMORY_LIMIT"
	ErrCodeExecHostCallLimit = "ERR_EXEC_HOST_CALL_LIMIT"
	ErrCodeExecRuntime       = "ERR_EXEC_RUNTIME"
	ErrCodeExecAborted       = "ERR_EXEC_ABORTED"

	// Instance pool
	ErrCodePoolShutdown = "ERR_POOL_SHUTDOWN"
	ErrCodePoolAcquire  = "ERR_POOL_ACQUIRE"

	// Runtime orchestration
	ErrCodeUnknownTool      = "ERR_RUNTIME_UNKNOWN_TOOL"
	ErrCodeUnknownLifecycle = "ERR_RUNTIME_UNKNOWN_LIFECYCLE"
	ErrCodePanelNotFound    = "ERR_RUNTIME_PANEL_NOT_FOUND"
	ErrCodeMissingArgument  = "ERR_RUNTIME_MISSING_ARGUMENT"
	ErrCodeBadArgument      = "ERR_RUNTIME_BAD_ARGUMENT"
	ErrCodeExtensionMissing = "ERR_RUNTIME_EXTENSION_MISSING"
	ErrCodeScopeCancel      = "ERR_RUNTIME_SCOPE_CANCEL"

	// Ambient
	ErrCodeConfigInvalid = "ERR_CONFIG_INVALID"
	ErrCodeFileRead      = "ERR_IO_FILE_READ"
	ErrCodeFileWrite     = "ERR_IO_FILE_WRITE"
	ErrCodeInternal      = "ERR_INTERNAL"
)
