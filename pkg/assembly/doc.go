// Package assembly 为内容生成应用提供 LLM 上下文装配能力。
//
// 本包实现了完整的上下文装配流水线：
// 分类（Classify）→ 预算分配（Allocate）→ 收集（Gather）→
// 优化（Optimize）→ 渲染（Render），用于在固定 Token 预算内
// 构建最优的模型输入。主要功能包括：
//
//   - Token 计数（tiktoken 精确路径 + 字符估算降级 + 有界缓存）
//   - 请求类型分类（创作 / 润色 / 分析 / 对话）
//   - 按请求类型的分类别 Token 预算分配与动态调整
//   - 多源上下文收集（对话历史、合规规则、文档摘要、范例检索、视频转写）
//   - 五维相关性评分（关键词重叠、领域词密度、内容类型匹配、结构相似度、质量启发式）
//   - 多策略压缩（结构保持 / 对话感知 / 通用段落-句子级）
//   - 全局上限保障（应急压缩 + 硬截断兜底）
//
// # 基本用法
//
// 创建引擎并装配上下文：
//
//	engine := assembly.NewEngine()
//	result := engine.AssembleContext(ctx, &assembly.Request{
//	    SessionID: "session-1",
//	    UserInput: "Create a LinkedIn post about retirement planning",
//	    ContextData: &assembly.ContextData{
//	        Examples: []assembly.KnowledgeItem{{Title: "范例", ContentText: "..."}},
//	    },
//	})
//
// # 高级用法
//
// 使用自定义设置配置引擎：
//
//	config := assembly.NewConfig(
//	    assembly.WithTokenCeiling(200000),
//	    assembly.WithOutputReserve(20000),
//	    assembly.WithAdvancedScoring(true),
//	)
//
//	engine := assembly.NewEngine(
//	    assembly.WithEngineConfig(config),
//	    assembly.WithConversationStore(convStore),
//	    assembly.WithDocumentStore(docStore),
//	)
//
// # 降级保证
//
// 任一阶段失败时，引擎返回仅由用户输入和已持有的原始检索文本
// 构成的最小上下文（FallbackUsed = true），绝不向调用方抛出。
package assembly
