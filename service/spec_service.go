package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"procurement-backend/kb"
	"procurement-backend/llm"
	"procurement-backend/models"
)

const (
	specSearchLimit   = 4
	specChunkMaxRunes = 800

	specNotFoundMessage    = "没有找到规格参数"
	rawSpecHeading         = "## 原始规格参数"
	specSystemPrompt       = "你是一位专业的采购专家，能够基于知识库内容准确总结产品规格参数。"
	specFoundFormat        = "找到 %d 条规格信息，请查看下方参考内容。"
	specSummarizeFailedFmt = "总结失败，找到 %d 条规格信息，请查看下方参考内容。"
)

var inlineNumberPattern = regexp.MustCompile(`(\d+)\.`)

// SpecSummary is the outcome of a spec search plus summarization pass.
type SpecSummary struct {
	Summary    *string
	References []models.Chunk
}

// SearchSpecs returns raw spec chunks for a product, excluding anything
// that lives in the supplier register documents.
func (s *KnowledgeService) SearchSpecs(ctx context.Context, productName string, productFeatures *string) ([]models.Chunk, error) {
	if s.search == nil {
		return nil, ErrSearcherNotSet
	}

	query := productName + " 规格 技术参数 配置要求"
	if productFeatures != nil && strings.TrimSpace(*productFeatures) != "" {
		query = productName + " " + strings.TrimSpace(*productFeatures) + " 规格 技术参数 配置要求"
	}

	opts := kb.SearchOptions{
		Limit:         specSearchLimit,
		ExcludeDocIDs: s.supplierDocIDs(),
	}
	if ids := s.supplierDocIDs(); len(ids) > 0 {
		opts.DocFilter = &kb.DocFilter{Op: "must_not", Field: "doc_id", Conds: ids}
	}

	chunks, err := s.search.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("[规格搜索] 查询 %q 返回 %d 条规格", productName, len(chunks))
	return chunks, nil
}

// SummarizeSpecs searches spec chunks for a product and asks the model to
// merge them with the original requirement text into one summary. Search
// runs on the product name alone; the original features are folded into
// the prompt instead. Failures never propagate: each step degrades to a
// sentinel summary so the caller always gets a usable payload.
func (s *KnowledgeService) SummarizeSpecs(ctx context.Context, productName string, productFeatures *string) SpecSummary {
	chunks, err := s.SearchSpecs(ctx, productName, nil)
	if err != nil {
		log.Printf("[规格总结] 规格搜索失败: %v", err)
		chunks = nil
	}

	if len(chunks) == 0 {
		if productFeatures != nil && strings.TrimSpace(*productFeatures) != "" {
			formatted := reformatInlineSpecs(*productFeatures)
			return SpecSummary{
				Summary:    strptr(rawSpecHeading + "\n\n" + formatted),
				References: []models.Chunk{},
			}
		}
		return SpecSummary{
			Summary:    strptr(specNotFoundMessage),
			References: []models.Chunk{},
		}
	}

	if !s.hasLLM() {
		log.Printf("[规格总结] 未配置模型，返回原始chunk")
		return SpecSummary{
			Summary:    strptr(fmt.Sprintf(specFoundFormat, len(chunks))),
			References: chunks,
		}
	}

	prompt := s.buildSpecPrompt(productName, productFeatures, chunks)

	var summary string
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var chatErr error
		summary, chatErr = s.chat.Chat(ctx, specSystemPrompt, prompt, llm.ChatOptions{
			Temperature: 0.3,
			MaxTokens:   2000,
		})
		return chatErr
	})
	if err != nil {
		log.Printf("[规格总结] 模型调用失败，降级返回原始chunk: %v", err)
		return SpecSummary{
			Summary:    strptr(fmt.Sprintf(specSummarizeFailedFmt, len(chunks))),
			References: chunks,
		}
	}

	return SpecSummary{
		Summary:    strptr(summary),
		References: chunks,
	}
}

// reformatInlineSpecs makes a single-line "1.名称:A 2.规格:B" requirement
// readable by starting each numbered item on its own line. Multi-line
// input is left alone.
func reformatInlineSpecs(features string) string {
	formatted := strings.TrimSpace(features)
	if strings.Contains(formatted, "\n") {
		return formatted
	}
	return strings.TrimSpace(inlineNumberPattern.ReplaceAllString(formatted, "\n$1."))
}

func (s *KnowledgeService) buildSpecPrompt(productName string, productFeatures *string, chunks []models.Chunk) string {
	var contextParts []string

	if productFeatures != nil && strings.TrimSpace(*productFeatures) != "" {
		contextParts = append(contextParts, "【原始需求规格】\n"+strings.TrimSpace(*productFeatures)+"\n")
	}

	for i, chunk := range chunks {
		docName := chunk.DocNameOrEmpty()
		if docName == "" {
			docName = "未知文档"
		}
		text := fmt.Sprintf("【知识库参考资料 %d】\npoint_id: %s\n文档名称：%s\n内容：%s",
			i+1, chunk.SliceID, docName, truncateRunes(chunk.Content, specChunkMaxRunes))
		if chunk.ImageURL != nil && *chunk.ImageURL != "" {
			text += "\n图片链接：" + *chunk.ImageURL
		}
		contextParts = append(contextParts, text)
	}

	contextText := strings.Join(contextParts, "\n\n")

	userQuestion := fmt.Sprintf("%s的详细规格参数和技术要求有哪些？", productName)
	if productFeatures != nil && *productFeatures != "" {
		userQuestion += fmt.Sprintf("\n\n注意：原始需求中已提供了部分规格信息（%s...），请结合知识库中的详细规格信息，对原始规格进行补充和完善。",
			truncateRunes(*productFeatures, 50))
	}

	return fmt.Sprintf(`# 任务
你是一位专业的采购专家，你的任务是根据「参考资料」总结产品的详细规格参数和技术要求，这些信息在 <context></context> XML tags 之内。

参考资料包含两部分：
1. 【原始需求规格】：用户提供的原始规格需求（可能不够详细）
2. 【知识库参考资料】：从知识库中搜索到的详细规格信息

你的总结要满足以下要求：
    1. 优先使用知识库中的详细规格信息，对原始需求规格进行补充和完善。
    2. 如果知识库中有更详细的规格参数，应该用知识库的信息补充原始规格。
    3. 如果原始需求规格已经很详细，知识库信息只是补充，则保留原始规格的主要内容，用知识库信息补充细节。
    4. 总结要简洁明了，突出关键的技术参数和规格要求。
    5. 如果参考资料不能帮助你总结规格参数，告知"没有找到额外的规格参数"。
    6. 总结要分点列出，便于阅读。

# 任务执行
现在请你根据提供的参考资料，总结产品的规格参数和技术要求。请将原始需求规格和知识库中的详细规格信息进行整合，形成完整的规格参数总结。

# 参考资料
<context>
%s
</context>
参考资料中提到的图片按上传顺序排列，请结合图片与文本信息综合总结。如参考资料中没有图片，请仅根据参考资料中的文本信息总结。

# 引用要求
1. 当可以总结时，在句子末尾适当引用相关参考资料，每个参考资料引用格式必须使用<reference>标签对，例如: <reference data-ref="{point_id}"></reference>
2. 当告知没有额外规格参数时，不允许引用任何参考资料
3. 'data-ref' 字段表示对应参考资料的 point_id
4. 'point_id' 取值必须来源于参考资料对应的'point_id'后的id号
5. 适当合并引用，当引用项相同可以合并引用，只在引用内容结束添加一个引用标签。

# 配图要求
1. 首先对参考资料的每个图片内容含义深入理解，然后从所有图片中筛选出与总结内容直接关联的图片，在总结中的合适位置插入作为配图，图像内容必须支持直接的可视化说明规格参数。若参考资料中无适配图片，或图片仅是间接性关联，则省略配图。
2. 使用 <illustration> 标签对表示插图，例如: <illustration data-ref="{point_id}"></illustration>，其中 'point_id' 字段表示对应图片的 point_id，每个配图标签对必须另起一行，相同的图片（以'point_id'区分）只允许使用一次。
3. 'point_id' 取值必须来源于参考资料，形如"_sys_auto_gen_doc_id-1005563729285435073--1"，请注意务必不要虚构，'point_id'值必须与参考资料完全一致

# 用户问题
%s`, contextText, userQuestion)
}
