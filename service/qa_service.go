package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"procurement-backend/kb"
	"procurement-backend/llm"
	"procurement-backend/models"
)

const (
	qaSearchLimit   = 5
	qaChunkMaxRunes = 800

	qaNotFoundMessage = "抱歉，在知识库中未找到相关信息。"
	qaFoundFormat     = "找到 %d 条相关信息，请查看下方参考内容。"
	qaSystemPrompt    = "你是一位专业的在线客服，能够基于知识库内容准确回答用户问题。"
)

// AnswerQuestion searches the knowledge base for the question and has the
// model draft a customer-support style answer citing its sources. Without
// a model or when the call fails, the raw chunks are returned with a
// sentinel answer.
func (s *KnowledgeService) AnswerQuestion(ctx context.Context, question string) (models.QAResponse, error) {
	if s.search == nil {
		return models.QAResponse{}, ErrSearcherNotSet
	}

	chunks, err := s.search.Search(ctx, question, kb.SearchOptions{Limit: qaSearchLimit})
	if err != nil {
		log.Printf("[问答] 知识库搜索失败: %v", err)
		chunks = nil
	}

	if len(chunks) == 0 {
		return models.QAResponse{
			Answer:     qaNotFoundMessage,
			References: []models.Chunk{},
		}, nil
	}

	if !s.hasLLM() {
		log.Printf("[问答] 未配置模型，返回原始chunk")
		return models.QAResponse{
			Answer:     fmt.Sprintf(qaFoundFormat, len(chunks)),
			References: chunks,
		}, nil
	}

	prompt := buildQAPrompt(question, chunks)

	var answer string
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var chatErr error
		answer, chatErr = s.chat.Chat(ctx, qaSystemPrompt, prompt, llm.ChatOptions{
			Temperature: 0.3,
			MaxTokens:   2000,
		})
		return chatErr
	})
	if err != nil {
		log.Printf("[问答] 模型调用失败，降级返回原始chunk: %v", err)
		return models.QAResponse{
			Answer:     fmt.Sprintf(qaFoundFormat, len(chunks)),
			References: chunks,
		}, nil
	}

	// Every searched chunk comes back as a reference; the answer's
	// data-ref citations point into this list for the client to resolve.
	return models.QAResponse{
		Answer:     answer,
		References: chunks,
	}, nil
}

func buildQAPrompt(question string, chunks []models.Chunk) string {
	var contextParts []string
	for _, chunk := range chunks {
		text := fmt.Sprintf("point_id: %s\n内容：%s", chunk.SliceID, truncateRunes(chunk.Content, qaChunkMaxRunes))
		if chunk.ImageURL != nil && *chunk.ImageURL != "" {
			text += "\n图片链接：" + *chunk.ImageURL
		}
		contextParts = append(contextParts, text)
	}
	contextText := strings.Join(contextParts, "\n")

	userQuestion := question
	if !strings.Contains(question, "规格") && !strings.Contains(question, "要求") {
		userQuestion = question + "相关的规格要求有哪些"
	}

	return fmt.Sprintf(`# 任务
你是一位在线客服，你的首要任务是通过巧妙的话术回复用户的问题，你需要根据「参考资料」来回答接下来的「用户问题」，这些信息在 <context></context> XML tags 之内，你需要根据参考资料给出准确，简洁的回答。

你的回答要满足以下要求：
    1. 回答内容必须在参考资料范围内，尽可能简洁地回答问题，不能做任何参考资料以外的扩展解释。
    2. 回答中需要根据客户问题和参考资料保持与客户的友好沟通。
    3. 如果参考资料不能帮助你回答用户问题，告知客户无法回答该问题，并引导客户提供更加详细的信息。
    4. 为了保密需要，委婉地拒绝回答有关参考资料的文档名称或文档作者等问题。

# 任务执行
现在请你根据提供的参考资料，遵循限制来回答用户的问题，你的回答需要准确和完整。

# 参考资料
<context>
%s
</context>
参考资料中提到的图片按上传顺序排列，请结合图片与文本信息综合回答问题。如参考资料中没有图片，请仅根据参考资料中的文本信息回答问题。

# 引用要求
1. 当可以回答时，在句子末尾适当引用相关参考资料，每个参考资料引用格式必须使用<reference>标签对，例如: <reference data-ref="{point_id}"></reference>
2. 当告知客户无法回答时，不允许引用任何参考资料
3. 'data-ref' 字段表示对应参考资料的 point_id
4. 'point_id' 取值必须来源于参考资料对应的'point_id'后的id号
5. 适当合并引用，当引用项相同可以合并引用，只在引用内容结束添加一个引用标签。

# 配图要求
1. 首先对参考资料的每个图片内容含义深入理解，然后从所有图片中筛选出与回答上下文直接关联的图片，在回答中的合适位置插入作为配图，图像内容必须支持直接的可视化说明问题的答案。若参考资料中无适配图片，或图片仅是间接性关联，则省略配图。
2. 使用 <illustration> 标签对表示插图，例如: <illustration data-ref="{point_id}"></illustration>，其中 'point_id' 字段表示对应图片的 point_id，每个配图标签对必须另起一行，相同的图片（以'point_id'区分）只允许使用一次。
3. 'point_id' 取值必须来源于参考资料，形如"_sys_auto_gen_doc_id-1005563729285435073--1"，请注意务必不要虚构，'point_id'值必须与参考资料完全一致

# 用户问题
%s`, contextText, userQuestion)
}
