package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
// 遵循 OpenTelemetry 语义约定
const (
	// 组装相关属性
	AttrAssemblyID          = "assembly.id"
	AttrAssemblyRequestType = "assembly.request_type"
	AttrAssemblySessionID   = "assembly.session_id"
	AttrAssemblyTokens      = "assembly.tokens"
	AttrAssemblyElements    = "assembly.elements"

	// Token 计数相关属性
	AttrTokenModel     = "token.model"
	AttrTokenCount     = "token.count"
	AttrTokenCacheHit  = "token.cache_hit"

	// 压缩相关属性
	AttrCompressionKind   = "compression.kind"
	AttrCompressionTarget = "compression.target"
	AttrCompressionRatio  = "compression.ratio"

	// 存储相关属性
	AttrStoreKind      = "store.kind"
	AttrStoreOperation = "store.operation"
	AttrStoreSessionID = "store.session_id"

	// Error 相关属性
	AttrErrorType      = "error.type"
	AttrErrorMessage   = "error.message"
	AttrErrorRetryable = "error.retryable"
)

// AssemblyID 创建组装标识属性
func AssemblyID(id string) attribute.KeyValue {
	return attribute.String(AttrAssemblyID, id)
}

// AssemblyRequestType 创建请求模式属性
func AssemblyRequestType(typ string) attribute.KeyValue {
	return attribute.String(AttrAssemblyRequestType, typ)
}

// AssemblyTokens 创建最终 Token 数属性
func AssemblyTokens(count int) attribute.KeyValue {
	return attribute.Int(AttrAssemblyTokens, count)
}

// CompressionKind 创建压缩策略属性
func CompressionKind(kind string) attribute.KeyValue {
	return attribute.String(AttrCompressionKind, kind)
}

// StoreOperation 创建存储操作属性
func StoreOperation(kind, op string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStoreKind, kind),
		attribute.String(AttrStoreOperation, op),
	}
}

// ErrorAttrs 创建错误属性
func ErrorAttrs(errType, message string, retryable bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, message),
		attribute.Bool(AttrErrorRetryable, retryable),
	}
}
