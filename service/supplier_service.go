package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"procurement-backend/kb"
	"procurement-backend/llm"
	"procurement-backend/models"
)

const (
	supplierSearchLimit = 15

	supplierMaxFieldRunes = 200
	supplierMaxTableRunes = 500
	supplierMaxTotalRunes = 8000

	// Single-chunk extraction sends one table per call and gets a short
	// answer back.
	supplierChunkMaxRunes     = 2000
	supplierChunkMaxTokens    = 500
	supplierSystemPrompt      = "你是一个专业的数据提取助手，能够准确从多个表格数据中批量提取供应商信息，并判断供应商与产品的相关性。"
	supplierChunkSystemPrompt = "你是一个专业的数据提取助手，能够准确从表格数据中提取供应商信息，并判断供应商与产品的相关性。"

	maxPossibleSuppliers = 5
)

// supplierExtraction is one row of the model's JSON answer.
type supplierExtraction struct {
	SupplierName    string `json:"supplier_name"`
	SupplierType    string `json:"supplier_type"`
	SubCategoryName string `json:"sub_category_name"`
	ValidFrom       string `json:"valid_from"`
	ValidTo         string `json:"valid_to"`
	ContactPerson   string `json:"contact_person"`
	TableIndex      int    `json:"table_index"`
	Relevance       string `json:"relevance"`
}

// SearchSuppliers finds supplier candidates for a product inside the two
// supplier register documents. Structured table chunks go through a single
// batched LLM extraction; plain text chunks use a cheap heuristic. When the
// batch call fails or its answer cannot be parsed, each chunk is retried
// with its own model call, skipping chunks that fail individually. Without
// a model the structured chunks fall back to field pattern extraction,
// unfiltered by relevance.
func (s *KnowledgeService) SearchSuppliers(ctx context.Context, productName string, productFeatures *string) ([]models.Supplier, error) {
	if s.search == nil {
		return nil, ErrSearcherNotSet
	}

	docIDs := s.supplierDocIDs()
	if len(docIDs) == 0 {
		log.Printf("[供应商搜索] 未配置定商文档，跳过搜索")
		return []models.Supplier{}, nil
	}

	query := productName + " 供应商 厂家 定商"
	if productFeatures != nil && strings.TrimSpace(*productFeatures) != "" {
		query = productName + " " + strings.TrimSpace(*productFeatures) + " 供应商 厂家 定商"
	}

	chunks, err := s.search.Search(ctx, query, kb.SearchOptions{
		Limit:     supplierSearchLimit,
		DocFilter: &kb.DocFilter{Op: "must", Field: "doc_id", Conds: docIDs},
	})
	if err != nil {
		return nil, err
	}

	var structured []models.Chunk
	var suppliers []models.Supplier
	for _, chunk := range chunks {
		if chunk.IsStructured() {
			structured = append(structured, chunk)
			continue
		}
		if name := extractSupplierName(chunk.Content); name != "" {
			suppliers = append(suppliers, models.Supplier{
				Name:        name,
				Source:      models.SupplierSourceKnowledgeBase,
				DocID:       strptr(chunk.DocID),
				DocName:     strptr(s.supplierDocName(chunk.DocID)),
				Description: strptr(truncateRunes(chunk.Content, supplierMaxFieldRunes)),
				SliceID:     strptr(chunk.SliceID),
				Content:     strptr(chunk.Content),
			})
		}
	}

	if len(structured) > 0 {
		extracted := s.extractSuppliersBatch(ctx, structured, productName, productFeatures)
		suppliers = append(extracted, suppliers...)
	}

	log.Printf("[供应商搜索] 共找到 %d 个供应商", len(suppliers))
	return suppliers, nil
}

// extractSuppliersBatch sends every structured table to the model in one
// call and maps the answer back to chunks via the 1-based table_index.
func (s *KnowledgeService) extractSuppliersBatch(ctx context.Context, chunks []models.Chunk, productName string, productFeatures *string) []models.Supplier {
	if !s.hasLLM() {
		log.Printf("[供应商批量提取] 未配置模型，使用字段规则提取")
		return extractSuppliersLegacy(chunks, s.supplierDocName)
	}

	tablesText := buildSupplierTables(chunks)
	if tablesText == "" {
		return nil
	}

	productQuery := strings.TrimSpace(productName)
	if productFeatures != nil && strings.TrimSpace(*productFeatures) != "" {
		productQuery += " " + strings.TrimSpace(*productFeatures)
	}
	prompt := buildSupplierPrompt(tablesText, productQuery)

	var raw string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var chatErr error
		raw, chatErr = s.chat.Chat(ctx, supplierSystemPrompt, prompt, llm.ChatOptions{
			Temperature: 0.1,
			MaxTokens:   2000,
		})
		return chatErr
	})
	if err != nil {
		log.Printf("[供应商批量提取] 模型调用失败，回退到逐个提取: %v", err)
		return s.extractSuppliersPerChunk(ctx, chunks, productName, productFeatures)
	}

	extractions, err := parseSupplierExtractions(raw)
	if err != nil {
		log.Printf("[供应商批量提取] 解析模型返回失败，回退到逐个提取: %v", err)
		return s.extractSuppliersPerChunk(ctx, chunks, productName, productFeatures)
	}

	var strong, possible []models.Supplier
	for _, ext := range extractions {
		if ext.SupplierName == "" {
			continue
		}
		idx := ext.TableIndex - 1
		if idx < 0 || idx >= len(chunks) {
			// The model occasionally cites a table that was never sent.
			continue
		}
		chunk := chunks[idx]

		relevance := models.ParseRelevance(ext.Relevance)
		supplier := models.Supplier{
			Name:      ext.SupplierName,
			Source:    models.SupplierSourceKnowledgeBase,
			DocID:     strptr(chunk.DocID),
			DocName:   strptr(s.supplierDocName(chunk.DocID)),
			SliceID:   strptr(chunk.SliceID),
			Content:   strptr(kb.FullContent(chunk)),
			Relevance: relevance,
		}
		if ext.SupplierType != "" {
			supplier.SupplierType = strptr(ext.SupplierType)
		}
		if ext.SubCategoryName != "" {
			supplier.SubCategoryName = strptr(ext.SubCategoryName)
		}
		if ext.ValidFrom != "" {
			supplier.ValidFrom = strptr(ext.ValidFrom)
		}
		if ext.ValidTo != "" {
			supplier.ValidTo = strptr(ext.ValidTo)
		}
		if ext.ContactPerson != "" {
			supplier.ContactPerson = strptr(ext.ContactPerson)
		}

		if relevance == models.RelevanceStrong {
			strong = append(strong, supplier)
		} else {
			possible = append(possible, supplier)
		}
	}

	if len(strong) > 0 {
		log.Printf("[供应商批量提取] 找到 %d 个强相关供应商", len(strong))
		return strong
	}
	if len(possible) > maxPossibleSuppliers {
		possible = possible[:maxPossibleSuppliers]
	}
	log.Printf("[供应商批量提取] 未找到强相关供应商，返回 %d 个可能相关的供应商", len(possible))
	return possible
}

// supplierChunkExtraction is the model's JSON answer for a single table.
// The relevance judgment comes back as a boolean instead of a label.
type supplierChunkExtraction struct {
	SupplierName    string `json:"supplier_name"`
	SupplierType    string `json:"supplier_type"`
	SubCategoryName string `json:"sub_category_name"`
	ValidFrom       string `json:"valid_from"`
	ValidTo         string `json:"valid_to"`
	ContactPerson   string `json:"contact_person"`
	IsRelevant      *bool  `json:"is_relevant"`
}

// extractSuppliersPerChunk is the fallback when the batch call breaks: one
// model call per structured chunk, silently skipping chunks that fail on
// their own.
func (s *KnowledgeService) extractSuppliersPerChunk(ctx context.Context, chunks []models.Chunk, productName string, productFeatures *string) []models.Supplier {
	log.Printf("[供应商提取] 批量提取失败，改用逐个提取，共 %d 个表格", len(chunks))

	productQuery := strings.TrimSpace(productName)
	if productFeatures != nil && strings.TrimSpace(*productFeatures) != "" {
		productQuery += " " + strings.TrimSpace(*productFeatures)
	}

	var suppliers []models.Supplier
	for _, chunk := range chunks {
		supplier, ok := s.extractSupplierFromChunk(ctx, chunk, productQuery)
		if ok {
			suppliers = append(suppliers, supplier)
		}
	}
	log.Printf("[供应商提取] 逐个提取完成，找到 %d 个供应商", len(suppliers))
	return suppliers
}

func (s *KnowledgeService) extractSupplierFromChunk(ctx context.Context, chunk models.Chunk, productQuery string) (models.Supplier, bool) {
	tableText := buildSupplierChunkText(chunk)
	if tableText == "" {
		return models.Supplier{}, false
	}

	prompt := buildSupplierChunkPrompt(tableText, productQuery)
	var raw string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var chatErr error
		raw, chatErr = s.chat.Chat(ctx, supplierChunkSystemPrompt, prompt, llm.ChatOptions{
			Temperature: 0.1,
			MaxTokens:   supplierChunkMaxTokens,
		})
		return chatErr
	})
	if err != nil {
		log.Printf("[供应商提取] 表格 %s 提取失败: %v", chunk.SliceID, err)
		return models.Supplier{}, false
	}

	ext, ok := parseSupplierChunkExtraction(raw)
	if !ok || ext.SupplierName == "" {
		return models.Supplier{}, false
	}
	if productQuery != "" && ext.IsRelevant != nil && !*ext.IsRelevant {
		return models.Supplier{}, false
	}

	supplier := models.Supplier{
		Name:    ext.SupplierName,
		Source:  models.SupplierSourceKnowledgeBase,
		DocID:   strptr(chunk.DocID),
		DocName: strptr(s.supplierDocName(chunk.DocID)),
		SliceID: strptr(chunk.SliceID),
		Content: strptr(kb.FullContent(chunk)),
	}
	if ext.SupplierType != "" {
		supplier.SupplierType = strptr(ext.SupplierType)
	}
	if ext.SubCategoryName != "" {
		supplier.SubCategoryName = strptr(ext.SubCategoryName)
	}
	if ext.ValidFrom != "" {
		supplier.ValidFrom = strptr(ext.ValidFrom)
	}
	if ext.ValidTo != "" {
		supplier.ValidTo = strptr(ext.ValidTo)
	}
	if ext.ContactPerson != "" {
		supplier.ContactPerson = strptr(ext.ContactPerson)
	}
	return supplier, true
}

// buildSupplierChunkText renders one chunk's table for the single-table
// prompt. The budget is looser than the batch path since only one table
// goes into the call.
func buildSupplierChunkText(chunk models.Chunk) string {
	var values []string
	for _, field := range chunk.TableFields {
		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}
		if len([]rune(value)) > supplierMaxFieldRunes {
			value = truncateRunes(value, supplierMaxFieldRunes) + "..."
		}
		values = append(values, value)
	}
	tableText := strings.Join(values, " | ")
	if len([]rune(tableText)) > supplierChunkMaxRunes {
		tableText = truncateRunes(tableText, supplierChunkMaxRunes) + "..."
	}

	if chunk.Content != "" {
		content := truncateRunes(chunk.Content, supplierMaxFieldRunes)
		if tableText != "" {
			combined := tableText + "\n内容: " + content
			if len([]rune(combined)) <= supplierChunkMaxRunes {
				tableText = combined
			}
		} else {
			tableText = truncateRunes(chunk.Content, supplierChunkMaxRunes)
		}
	}
	return tableText
}

func buildSupplierChunkPrompt(tableText, productQuery string) string {
	if productQuery == "" {
		return fmt.Sprintf(`请从以下表格数据中提取供应商信息，并以JSON格式返回。

表格数据：
%s

请提取以下字段（如果存在）：
- supplier_name: 供应商名称（必填）
- supplier_type: 供应商类型（制造商/供货商）
- sub_category_name: 子分类名称（物资类别）
- valid_from: 有效期开始日期
- valid_to: 有效期结束日期
- contact_person: 联系人

返回格式：
{
    "supplier_name": "供应商名称",
    "supplier_type": "制造商或供货商",
    "sub_category_name": "子分类名称（物资类别）",
    "valid_from": "有效期开始",
    "valid_to": "有效期结束",
    "contact_person": "联系人"
}

如果无法提取供应商信息，返回：null`, tableText)
	}

	return fmt.Sprintf(`请从以下表格数据中提取供应商信息，并判断该供应商与产品"%s"是否相关。

表格数据：
%s

请提取以下字段（如果存在）：
- supplier_name: 供应商名称（必填）
- supplier_type: 供应商类型（制造商/供货商）
- sub_category_name: 子分类名称（物资类别）
- valid_from: 有效期开始日期
- valid_to: 有效期结束日期
- contact_person: 联系人
- is_relevant: 该供应商的物资类别是否与产品"%s"相关（true 或 false）

返回格式：
{
    "supplier_name": "供应商名称",
    "supplier_type": "制造商或供货商",
    "sub_category_name": "子分类名称（物资类别）",
    "valid_from": "有效期开始",
    "valid_to": "有效期结束",
    "contact_person": "联系人",
    "is_relevant": true
}

如果无法提取供应商信息，或供应商与产品不相关（is_relevant为false），返回：null`, productQuery, tableText, productQuery)
}

// parseSupplierChunkExtraction decodes a single-table answer. The model may
// answer the literal "null" when nothing can be extracted.
func parseSupplierChunkExtraction(raw string) (supplierChunkExtraction, bool) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	if text == "" || strings.EqualFold(text, "null") {
		return supplierChunkExtraction{}, false
	}

	var ext supplierChunkExtraction
	if err := json.Unmarshal([]byte(text), &ext); err != nil {
		log.Printf("[供应商提取] 解析模型返回失败: %v", err)
		return supplierChunkExtraction{}, false
	}
	return ext, true
}

// buildSupplierTables renders each structured chunk as one numbered table
// block, with per-field, per-table and total character budgets so the
// prompt stays bounded.
func buildSupplierTables(chunks []models.Chunk) string {
	var tables []string
	for i, chunk := range chunks {
		var values []string
		for _, field := range chunk.TableFields {
			value := strings.TrimSpace(field.Value)
			if value == "" {
				continue
			}
			if len([]rune(value)) > supplierMaxFieldRunes {
				value = truncateRunes(value, supplierMaxFieldRunes) + "..."
			}
			values = append(values, value)
		}
		tableText := strings.Join(values, " | ")
		if len([]rune(tableText)) > supplierMaxTableRunes {
			tableText = truncateRunes(tableText, supplierMaxTableRunes) + "..."
		}

		if chunk.Content != "" {
			content := truncateRunes(chunk.Content, supplierMaxFieldRunes)
			if tableText != "" {
				combined := tableText + "\n内容: " + content
				if len([]rune(combined)) <= supplierMaxTableRunes {
					tableText = combined
				}
			} else {
				tableText = truncateRunes(content, supplierMaxTableRunes)
			}
		}

		if tableText != "" {
			tables = append(tables, fmt.Sprintf("表格%d:\n%s", i+1, tableText))
		}
	}

	result := strings.Join(tables, "\n\n")
	if len([]rune(result)) > supplierMaxTotalRunes {
		result = truncateRunes(result, supplierMaxTotalRunes) + "..."
	}
	return result
}

func buildSupplierPrompt(tablesText, productQuery string) string {
	if productQuery == "" {
		return fmt.Sprintf(`请从以下多个表格数据中提取所有供应商信息，并以JSON数组格式返回。

表格数据：
%s

请提取以下字段（如果存在）：
- supplier_name: 供应商名称（必填）
- supplier_type: 供应商类型（制造商/供货商）
- sub_category_name: 子分类名称（物资类别）
- valid_from: 有效期开始日期
- valid_to: 有效期结束日期
- contact_person: 联系人
- table_index: 表格编号（1, 2, 3...）

返回格式（JSON数组）：
[
    {
        "supplier_name": "供应商名称",
        "supplier_type": "制造商或供货商",
        "sub_category_name": "子分类名称（物资类别）",
        "valid_from": "有效期开始",
        "valid_to": "有效期结束",
        "contact_person": "联系人",
        "table_index": 1
    },
    ...
]

如果找不到任何供应商，返回空数组：[]`, tablesText)
	}

	return fmt.Sprintf(`请从以下多个表格数据中提取所有与产品"%s"相关的供应商信息。

表格数据：
%s

任务要求：
1. 从所有表格中提取供应商信息（如果存在）
2. 判断每个供应商与产品"%s"的相关性：
   - "强相关"：产品名称判断属于供应商的物资类别
   - "可能相关"：产品名称判断不属于供应商的物资类别，但存在一定关联性
3. 优先返回"强相关"的供应商
4. 如果没有"强相关"的供应商，返回top 5个"可能相关"的供应商（按相关性排序）
5. 完全不相关的供应商不返回

请提取以下字段（如果存在）：
- supplier_name: 供应商名称（必填）
- supplier_type: 供应商类型（制造商/供货商）
- sub_category_name: 子分类名称（物资类别）
- valid_from: 有效期开始日期
- valid_to: 有效期结束日期
- contact_person: 联系人
- table_index: 表格编号（1, 2, 3...）
- relevance: 相关性标记（"强相关" 或 "可能相关"）

返回格式（JSON数组）：
[
    {
        "supplier_name": "供应商名称",
        "supplier_type": "制造商或供货商",
        "sub_category_name": "子分类名称（物资类别）",
        "valid_from": "有效期开始",
        "valid_to": "有效期结束",
        "contact_person": "联系人",
        "table_index": 1,
        "relevance": "强相关"
    },
    ...
]

如果找不到任何相关供应商，返回空数组：[]`, productQuery, tablesText, productQuery)
}

// parseSupplierExtractions strips markdown code fences and decodes the
// model's JSON array. A single object answer is accepted as a one-element
// list.
func parseSupplierExtractions(raw string) ([]supplierExtraction, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var extractions []supplierExtraction
	if err := json.Unmarshal([]byte(text), &extractions); err != nil {
		var single supplierExtraction
		if err2 := json.Unmarshal([]byte(text), &single); err2 == nil {
			return []supplierExtraction{single}, nil
		}
		return nil, err
	}
	return extractions, nil
}

// extractSuppliersLegacy pulls supplier names out of table fields by
// company-name pattern. Used when no model is available.
func extractSuppliersLegacy(chunks []models.Chunk, docName func(string) string) []models.Supplier {
	var suppliers []models.Supplier
	for _, chunk := range chunks {
		var values []string
		for _, field := range chunk.TableFields {
			if v := strings.TrimSpace(field.Value); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		var name string
		for _, value := range values {
			if value == "制造商" || value == "供货商" || value == "定商定价" {
				continue
			}
			if strings.Contains(value, "公司") || strings.Contains(value, "集团") {
				name = value
				break
			}
		}
		if name == "" {
			continue
		}

		description := values
		if len(description) > 3 {
			description = description[:3]
		}
		suppliers = append(suppliers, models.Supplier{
			Name:        name,
			Source:      models.SupplierSourceKnowledgeBase,
			DocID:       strptr(chunk.DocID),
			DocName:     strptr(docName(chunk.DocID)),
			Description: strptr(strings.Join(description, " | ")),
			SliceID:     strptr(chunk.SliceID),
			Content:     strptr(kb.FullContent(chunk)),
		})
	}
	return suppliers
}

// extractSupplierName scans free text for a "供应商: X" style line.
func extractSupplierName(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "供应商") && !strings.Contains(line, "厂家") && !strings.Contains(line, "公司") {
			continue
		}
		for _, sep := range []string{"：", ":"} {
			if idx := strings.Index(line, sep); idx >= 0 {
				if name := strings.TrimSpace(line[idx+len(sep):]); name != "" {
					return name
				}
			}
		}
	}
	return ""
}
