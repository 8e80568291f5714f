package llm

import "strings"

// PromptVars carries the substitutions for a workflow node's prompt
// template. Empty fields substitute as bracketed placeholders so the
// model sees "nothing provided" rather than a dangling variable.
type PromptVars struct {
	ProjectName   string
	ProjectVision string
	UserInput     string
	PrevDocs      string
	CurrentStates string
	CurrentTables string
}

// BuildPrompt expands a node prompt template. Recognized variables:
// {projectName} {projectVision} {userInput} {prevDocs} {currentStates}
// {currentTables}.
func BuildPrompt(template string, vars PromptVars) string {
	replacer := strings.NewReplacer(
		"{projectName}", vars.ProjectName,
		"{projectVision}", vars.ProjectVision,
		"{userInput}", orPlaceholder(vars.UserInput, "（用户未提供额外输入）"),
		"{prevDocs}", orPlaceholder(vars.PrevDocs, "（无前置文档）"),
		"{currentStates}", orPlaceholder(vars.CurrentStates, "（暂无状态数据）"),
		"{currentTables}", orPlaceholder(vars.CurrentTables, "（暂无表结构数据）"),
	)
	return replacer.Replace(template)
}

// BuildFollowUpPrompt builds the edit prompt for an existing document:
// the model gets the full current text plus the user's instruction and
// must return the complete revised document.
func BuildFollowUpPrompt(currentContent, userInstruction string) string {
	var b strings.Builder
	b.WriteString("以下是当前文档内容：\n\n---\n")
	b.WriteString(currentContent)
	b.WriteString("\n---\n\n用户要求修改：")
	b.WriteString(userInstruction)
	b.WriteString("\n\n请基于当前文档内容，根据用户的修改要求进行优化。保持Markdown格式，仅修改用户要求的部分，其余内容保持不变。输出完整的修改后文档。")
	return b.String()
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
