package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// Components defines standard component names
const (
	ComponentAPI       = "api"
	ComponentScheduler = "scheduler"
	ComponentProcessor = "recurring_processor"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "export_worker"
	ComponentExport    = "sheets_export"
)
