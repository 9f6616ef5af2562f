package errors

// ErrValidation indicates a caller-supplied value failed validation —
// an unknown gate, a malformed tenant context, a missing required field.
var ErrValidation = Register(New(KindValidation, "validation failed", "验证失败"))

// ErrConfig indicates the engine's own configuration is invalid or
// incomplete (a missing index endpoint, an unparsable duration).
var ErrConfig = Register(New(KindConfig, "configuration error", "配置错误"))

// ErrNotFound indicates the requested memory, rule, or identity card
// does not exist in the caller's tenant scope.
var ErrNotFound = Register(New(KindNotFound, "not found", "未找到"))

// ErrStorage indicates the vector index, cache, or audit store failed
// to service a request.
var ErrStorage = Register(New(KindStorage, "storage error", "存储错误"))

// ErrUpstream indicates the embedding or synthesis provider failed or
// returned something the engine could not use.
var ErrUpstream = Register(New(KindUpstream, "upstream error", "上游错误"))

// ErrCancelled indicates the caller's context was cancelled or timed
// out before the operation completed.
var ErrCancelled = Register(New(KindCancelled, "operation cancelled", "操作已取消"))

// ErrInvalidParam is ErrValidation under the name callers reach for when
// rejecting a single bad parameter.
var ErrInvalidParam = ErrValidation
