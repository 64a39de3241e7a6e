package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"procurement-backend/kb"
	"procurement-backend/llm"
	"procurement-backend/models"
)

const (
	personnelSearchLimit   = 50
	personnelMaxChunks     = 30
	personnelChunkMaxRunes = 1500
	personnelMaxRaw        = 20
	personnelMaxReferences = 20

	personnelSystemPrompt = "你是一位专业的人力资源专家，能够准确提取和格式化人员信息。"
)

var (
	jsonFencePattern     = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	personnelObjPattern  = regexp.MustCompile(`(?s)\{.*"personnel_list".*\}`)
	relativeYearsPattern = regexp.MustCompile(`^(\d+)\s*年$`)
)

// personnelExtraction is one person in the model's JSON answer.
type personnelExtraction struct {
	Name              string `json:"name"`
	Department        string `json:"department"`
	Category          string `json:"category"`
	CertificateName   string `json:"certificate_name"`
	CertificateNumber string `json:"certificate_number"`
	IssueDate         string `json:"issue_date"`
	ExpiryDate        string `json:"expiry_date"`
	FreeStatus        string `json:"free_status"`
	SliceID           string `json:"slice_id"`
}

type personnelPayload struct {
	PersonnelList []personnelExtraction `json:"personnel_list"`
}

// SearchCertificatePersonnel answers a natural language staffing query
// against the certificate register document, e.g. "标段时间：2026年1月到
// 2026年3月，需要2个一级建造师注册证书的人员". The model filters the
// register chunks and shapes them into personnel records; a malformed
// model answer yields an empty list, never an error.
func (s *KnowledgeService) SearchCertificatePersonnel(ctx context.Context, query string) (models.CertificatePersonnelResponse, error) {
	if s.search == nil {
		return models.CertificatePersonnelResponse{}, ErrSearcherNotSet
	}

	resp := models.CertificatePersonnelResponse{
		Question:      query,
		PersonnelList: []models.Personnel{},
		References:    []models.Chunk{},
	}

	chunks := s.searchCertificateChunks(ctx, query)
	if len(chunks) == 0 {
		log.Printf("[证书人员查询] 未找到证书文档的chunk")
		return resp, nil
	}

	references := chunks
	if len(references) > personnelMaxReferences {
		references = references[:personnelMaxReferences]
	}
	resp.References = references

	if !s.hasLLM() {
		log.Printf("[证书人员查询] 未配置模型，返回原始chunk")
		raw := chunks
		if len(raw) > personnelMaxRaw {
			raw = raw[:personnelMaxRaw]
		}
		for _, chunk := range raw {
			resp.PersonnelList = append(resp.PersonnelList, models.Personnel{
				Content: chunk.Content,
				SliceID: strptr(chunk.SliceID),
				DocID:   strptr(chunk.DocID),
			})
		}
		return resp, nil
	}

	prompt := buildPersonnelPrompt(query, chunks)

	var answer string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var chatErr error
		answer, chatErr = s.chat.Chat(ctx, personnelSystemPrompt, prompt, llm.ChatOptions{
			Temperature: 0.1,
			MaxTokens:   4000,
		})
		return chatErr
	})
	if err != nil {
		log.Printf("[证书人员查询] 模型调用失败: %v", err)
		return resp, nil
	}

	extractions := parsePersonnelExtractions(answer)
	for _, ext := range extractions {
		person := models.Personnel{
			Content: ext.Name,
			DocID:   strptr(s.certificateDocID),
		}
		if ext.SliceID != "" {
			person.SliceID = strptr(ext.SliceID)
		}
		for _, chunk := range chunks {
			if kb.MatchSliceID(chunk.SliceID, ext.SliceID) {
				person.Content = chunk.Content
				break
			}
		}
		setIfNotEmpty(&person.Name, ext.Name)
		setIfNotEmpty(&person.Department, ext.Department)
		setIfNotEmpty(&person.Category, ext.Category)
		setIfNotEmpty(&person.CertificateName, ext.CertificateName)
		setIfNotEmpty(&person.CertificateNumber, ext.CertificateNumber)
		setIfNotEmpty(&person.IssueDate, ext.IssueDate)
		setIfNotEmpty(&person.ExpiryDate, resolveRelativeExpiry(ext.ExpiryDate, ext.IssueDate))
		setIfNotEmpty(&person.FreeStatus, ext.FreeStatus)
		resp.PersonnelList = append(resp.PersonnelList, person)
	}

	log.Printf("[证书人员查询] 找到 %d 个匹配人员", len(resp.PersonnelList))
	return resp, nil
}

// searchCertificateChunks scopes the search to the certificate register
// document. When the scoped search comes back empty the query runs again
// unscoped and the results are post-filtered, this time matching doc ids
// by the suffix rule since some collection versions prefix them.
func (s *KnowledgeService) searchCertificateChunks(ctx context.Context, query string) []models.Chunk {
	chunks, err := s.search.Search(ctx, query, kb.SearchOptions{
		Limit:     personnelSearchLimit,
		DocFilter: &kb.DocFilter{Op: "must", Field: "doc_id", Conds: []string{s.certificateDocID}},
	})
	if err != nil {
		log.Printf("[证书人员查询] 知识库搜索失败: %v", err)
		chunks = nil
	}
	if len(chunks) > 0 {
		return chunks
	}

	all, err := s.search.Search(ctx, query, kb.SearchOptions{Limit: personnelSearchLimit})
	if err != nil {
		log.Printf("[证书人员查询] 重新搜索失败: %v", err)
		return nil
	}
	var filtered []models.Chunk
	for _, chunk := range all {
		if kb.MatchSliceID(chunk.DocID, s.certificateDocID) {
			filtered = append(filtered, chunk)
		}
	}
	return filtered
}

// parsePersonnelExtractions tolerates the answer formats the model
// produces: a fenced ```json block, a bare object containing
// personnel_list, or the whole response as JSON. Anything unparseable
// yields an empty list.
func parsePersonnelExtractions(answer string) []personnelExtraction {
	jsonStr := answer
	if m := jsonFencePattern.FindStringSubmatch(answer); m != nil {
		jsonStr = m[1]
	} else if m := personnelObjPattern.FindString(answer); m != "" {
		jsonStr = m
	}

	var payload personnelPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		log.Printf("[证书人员查询] 模型返回的JSON解析失败: %v", err)
		return nil
	}
	return payload.PersonnelList
}

// resolveRelativeExpiry converts a "3年" style validity into an ISO date
// by adding the years to the issue date. Anything else passes through.
func resolveRelativeExpiry(expiry, issue string) string {
	m := relativeYearsPattern.FindStringSubmatch(strings.TrimSpace(expiry))
	if m == nil {
		return expiry
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return expiry
	}

	for _, layout := range []string{"2006-01-02", "2006/01/02", "2006.01.02", "2006年01月02日", "2006年1月2日"} {
		if issued, err := time.Parse(layout, strings.TrimSpace(issue)); err == nil {
			return issued.AddDate(years, 0, 0).Format("2006-01-02")
		}
	}
	return expiry
}

func setIfNotEmpty(dst **string, value string) {
	if value != "" {
		*dst = strptr(value)
	}
}

func buildPersonnelPrompt(query string, chunks []models.Chunk) string {
	if len(chunks) > personnelMaxChunks {
		chunks = chunks[:personnelMaxChunks]
	}
	var contextParts []string
	for _, chunk := range chunks {
		contextParts = append(contextParts, fmt.Sprintf("point_id: %s\n内容：%s",
			chunk.SliceID, truncateRunes(chunk.Content, personnelChunkMaxRunes)))
	}
	contextText := strings.Join(contextParts, "\n")

	return fmt.Sprintf(`# 任务
你是一位专业的人力资源专家，你的任务是根据「参考资料」找出符合用户要求的人员信息，这些信息在 <context></context> XML tags 之内。

# 用户查询需求
%s

# 数据格式说明
参考资料中可能包含三种不同的表格格式，你需要识别并正确解析：

**格式1：成都公司的sheet页**
字段：序号、姓名、部门、类别、证书名称、证书编号、发证日期、到期日期
- 姓名 → name
- 部门 → department
- 类别 → category
- 证书名称 → certificate_name
- 证书编号 → certificate_number
- 发证日期 → issue_date
- 到期日期 → expiry_date

**格式2：公司各类培训证书的sheet页**
字段：序号、姓名、部门、证书名称、培训机构、发证时间、证书有效期、备注
- 姓名 → name
- 部门 → department
- 证书名称 → certificate_name
- 发证时间 → issue_date
- 证书有效期 → expiry_date（注意：可能是"X年"格式，需要转换为具体日期）
- 备注 → free_status（如果备注中包含空闲状态信息）

**格式3：新疆片区员工证书sheet页**
字段：序号、姓名、部门、作业区、专业、证书名称、证书编号、发证日期、有效日期、备注
- 姓名 → name
- 部门 → department
- 作业区 → category（作业区作为类别）
- 专业 → category（专业也可以作为类别，优先使用作业区）
- 证书名称 → certificate_name
- 证书编号 → certificate_number
- 发证日期 → issue_date
- 有效日期 → expiry_date
- 备注 → free_status（如果备注中包含空闲状态信息）

# 任务要求
1. 仔细分析参考资料中的所有人员信息，识别表格格式
2. 筛选出符合用户查询需求的人员：
   - 证书有效期可以覆盖查询需求中的标段时间
     * 如果到期日期/有效日期在标段时间之后，则符合条件
     * 如果证书有效期是"X年"格式，需要根据发证日期计算到期日期
   - 证书类型符合要求
     * 证书名称需要匹配或包含要求的证书类型
     * 匹配要灵活，例如："一级建造师注册证书"可以匹配"一级建造师"、"建造师"等
   - 如果指定了空闲状态，人员空闲状态需匹配
     * 空闲状态可能在备注字段中，需要仔细查找
3. 从每个符合条件的人员信息中提取以下字段：
   - name（姓名）：必填
   - department（部门）：必填
   - category（类别）：可选，可能是"类别"、"作业区"或"专业"
   - certificate_name（证书名称）：必填
   - certificate_number（证书编号）：可选，格式2可能没有
   - issue_date（发证日期）：必填，格式统一为YYYY-MM-DD
   - expiry_date（到期日期）：必填，格式统一为YYYY-MM-DD
     * 如果是"X年"格式，需要根据发证日期计算
     * 例如：发证日期2020-01-01，有效期3年，则到期日期为2023-01-01
   - free_status（空闲状态）：可选，从备注或其他字段中提取
4. 返回JSON格式的人员列表，格式如下：
`+"```json"+`
{
  "personnel_list": [
    {
      "name": "姓名",
      "department": "部门",
      "category": "类别",
      "certificate_name": "证书名称",
      "certificate_number": "证书编号",
      "issue_date": "2024-01-01",
      "expiry_date": "2027-01-01",
      "free_status": "空闲状态",
      "slice_id": "对应的point_id"
    }
  ]
}
`+"```"+`

# 注意事项
1. 只返回JSON格式，不要添加任何其他文字说明
2. 如果某个字段在参考资料中找不到，使用空字符串 ""
3. slice_id字段必须使用参考资料中对应的point_id
4. 只返回符合条件的人员，不符合条件的不要包含
5. 确保日期格式统一为YYYY-MM-DD（如：2024-01-01）
6. 日期计算要准确，注意年份的加减
7. 证书名称匹配要灵活，支持部分匹配（如：要求"安全证书"，"安全员证书"也符合）
8. 如果同一人员有多条记录，每条记录都要单独返回

# 参考资料
<context>
%s
</context>

请根据参考资料找出符合要求的人员，并以JSON格式返回。`, query, contextText)
}
