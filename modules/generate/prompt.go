package generate

import (
	"regexp"
	"strings"

	"flux-image-gateway/modules/common/model"
)

// EnhanceSystemInstruction - 프롬프트 개선 모델용 고정 지시문
// 새로운 대상/고유명사 추가 금지, 시각적 표현만 보강
const EnhanceSystemInstruction = "You are a prompt enhancement specialist for image generation. STRICT RULES: " +
	"1) Never add objects, people, animals, or elements not mentioned in the original prompt. Only enhance what is already there. " +
	"2) Never use brand names, celebrity names, character names, or any proper nouns. " +
	"3) Focus on enhancing: lighting quality, color palette, atmosphere, composition, camera angles, artistic style, texture details, and visual mood. " +
	"4) Use only generic terms like \"person\", \"building\", \"landscape\", \"object\". " +
	"5) Keep the core subject matter exactly as specified. " +
	"Output ONLY the enhanced prompt with no preamble or explanation."

// buildEnhanceMessages - system 지시문 + user 프롬프트
func buildEnhanceMessages(prompt string) []model.ChatMessage {
	return []model.ChatMessage{
		{Role: model.RoleSystem, Content: EnhanceSystemInstruction},
		{Role: model.RoleUser, Content: "Enhance this for image generation: " + prompt},
	}
}

type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// space - ASCII 공백 + 유니코드 공백 (NBSP, 전각 공백, BOM 포함)
const space = `[\s\v\p{Z}\x{FEFF}]`

// moderation 오탐을 일으키는 표현 치환 (순서대로 적용)
var sanitizeRules = []substitution{
	{regexp.MustCompile(`(?i)\b(over|on|at|in|near)` + space + `+(the` + space + `+)?mountains?\b`), "with mountain landscape"},
	{regexp.MustCompile(`(?i)\bsunset\b`), "golden hour lighting"},
	{regexp.MustCompile(`(?i)\bsunrise\b`), "dawn lighting"},
}

// SanitizePrompt - 치환 규칙 적용 후 trim
func SanitizePrompt(prompt string) string {
	out := prompt
	for _, rule := range sanitizeRules {
		out = rule.pattern.ReplaceAllLiteralString(out, rule.replacement)
	}
	return strings.TrimSpace(out)
}
