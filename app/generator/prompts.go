package generator

import (
	"fmt"
	"strings"

	"github.com/inkwell-sh/inkwell/app/database"
)

// Target article lengths in characters by source type.
var targetLengths = map[database.SourceType][2]int{
	database.SourceTypeNews:    {15000, 20000},
	database.SourceTypePaper:   {12000, 15000},
	database.SourceTypeArticle: {8000, 10000},
}

const systemPrompt = `You are an expert AI technology blogger who writes in-depth, engaging articles about artificial intelligence, machine learning, and emerging technologies.

Your writing style:
- Professional yet accessible to a broad audience
- Clear explanations of technical concepts
- Engaging narrative with practical examples
- Well-structured with clear sections and headings
- Balanced analysis with pros and cons

Your articles always:
- Start with a compelling introduction that explains why this topic matters
- Include real-world applications and implications
- Provide technical depth without being overwhelming
- End with future outlook and actionable insights
- Use accurate information only - never fabricate facts or links

SEO Best Practices:
- Structure content for both humans and AI systems
- Use short paragraphs (2-3 sentences max)
- Include tables for comparisons and specifications
- Add bullet points and numbered lists for scannability
- Create clear section hierarchies (H2, H3)`

func articlePrompt(sourceType database.SourceType, title, content, summary, author string) string {
	lengths, ok := targetLengths[sourceType]
	if !ok {
		lengths = targetLengths[database.SourceTypeArticle]
	}

	var info strings.Builder
	fmt.Fprintf(&info, "- **Type**: %s\n", sourceType)
	fmt.Fprintf(&info, "- **Original Title**: %s\n", title)
	if author != "" {
		fmt.Fprintf(&info, "- **Author(s)**: %s\n", author)
	}
	if summary != "" {
		fmt.Fprintf(&info, "- **Summary**: %s\n", summary)
	}

	return fmt.Sprintf(`Write a comprehensive blog article based on the following source material.

## Source Information
%s
## Source Content
%s

## Article Requirements

### Length and Format
- Target length: %d to %d characters
- Format: Markdown
- Language: English

### Structure Requirements (SEO-Optimized)
1. **TL;DR Section** (Required):
   - Start with a "## TL;DR" section
   - 3-4 bullet points summarizing key takeaways

2. **Title**: Create an engaging, rephrased title (not just copying the original)

3. **Subtitle**: Write a compelling subtitle (max 140 characters)

4. **Introduction**:
   - Hook the reader with why this topic matters now
   - Provide necessary background context
   - Preview what the article will cover

5. **Main Body**:
   - Use clear section headings (## for main sections, ### for subsections)
   - Keep paragraphs SHORT (2-3 sentences maximum)
   - Include at least ONE comparison table using markdown table format
   - Use bullet points or numbered lists frequently

6. **FAQ Section** (Required):
   - Include "## Frequently Asked Questions" section
   - Add 3-4 relevant Q&A pairs

7. **Conclusion**:
   - Summarize key takeaways
   - Discuss future implications

%s

### Critical Rules
- NEVER fabricate information, statistics, or quotes
- NEVER create fake URLs or references
- Only cite information from the provided source
- Maintain factual accuracy throughout

### Output Format
Return your article in the following JSON format:
`+"```json"+`
{
    "title": "Your engaging article title",
    "subtitle": "Compelling subtitle under 140 characters",
    "content": "Full markdown content of the article...",
    "tags": ["Tag1", "Tag2", "Tag3", "Tag4", "Tag5"],
    "meta_description": "SEO description under 160 characters"
}
`+"```"+`

**CRITICAL JSON FORMATTING RULES**:
- The content field must be a valid JSON string
- Escape all double quotes inside content with backslash: use \" instead of "
- Escape newlines as \n

Now write the article:`, info.String(), content, lengths[0], lengths[1],
		typeSpecificInstructions(sourceType))
}

func typeSpecificInstructions(sourceType database.SourceType) string {
	switch sourceType {
	case database.SourceTypeNews:
		return `### News Article Specific Guidelines
- Focus on the news event's significance and broader implications
- Provide context about the companies/people involved
- Discuss potential impact on the industry
- Add a timeline table if multiple events are involved`
	case database.SourceTypePaper:
		return `### Research Paper Specific Guidelines
- Explain the research problem being addressed
- Break down the methodology in accessible terms
- Highlight key findings and their significance
- Discuss practical applications of the research
- Address limitations and future research directions
- Make complex concepts understandable to non-experts`
	default:
		return `### Article Specific Guidelines
- Identify and elaborate on the key arguments
- Provide additional context and background
- Include practical applications and examples
- Add your analytical insights`
	}
}

func improvementPrompt(content, feedback string) string {
	return fmt.Sprintf(`Improve the following blog article based on the provided feedback.

## Current Article
%s

## Improvement Feedback
%s

## Instructions
- Maintain the overall structure and format
- Address all points in the feedback
- Keep the same professional tone
- Preserve accurate information
- Do not add fabricated facts or references

Return the improved article in the same JSON format:
`+"```json"+`
{
    "title": "Article title",
    "subtitle": "Subtitle",
    "content": "Improved markdown content...",
    "tags": ["Tags"],
    "meta_description": "SEO description"
}
`+"```", content, feedback)
}

const evaluationPromptHeader = `You are an AI blog editor evaluating sources for a tech/AI blog.

Evaluate the following source and provide:
1. A relevance score (0-100) based on:
   - Timeliness and newsworthiness (is this current/relevant news?)
   - Technical depth and quality of content
   - Interest level for AI/tech audience
   - Uniqueness and novelty of the topic

2. A suggested topic/angle for a blog article based on this source.

3. Key points that should be covered in the article.

4. A brief reason for your score.
`

func evaluationPrompt(sourceType database.SourceType, title, url, content, summary string) string {
	summarySection := ""
	if summary != "" {
		summarySection = fmt.Sprintf("Summary:\n%s\n", summary)
	}

	return fmt.Sprintf(`%s
SOURCE INFORMATION:
- Type: %s
- Title: %s
- URL: %s

%s
Content:
%s

Respond ONLY with a JSON object in this exact format:
`+"```json"+`
{
    "relevance_score": <0-100>,
    "suggested_topic": "<catchy article title/angle>",
    "key_points": ["<point 1>", "<point 2>", "<point 3>"],
    "reason": "<brief explanation for the score>",
    "is_recommended": <true if score >= 60, false otherwise>
}
`+"```", evaluationPromptHeader, sourceType, title, url, summarySection, content)
}

func batchEvaluationPrompt(sources []BatchSource) string {
	var list strings.Builder
	for i, source := range sources {
		summary := source.Summary
		if len(summary) > 500 {
			summary = summary[:500]
		}
		if summary == "" {
			summary = "N/A"
		}
		fmt.Fprintf(&list, `
---
Source %d:
- ID: %s
- Type: %s
- Title: %s
- URL: %s
- Summary: %s
`, i+1, source.ID, source.Type, source.Title, source.URL, summary)
	}

	return fmt.Sprintf(`You are an AI blog editor evaluating multiple sources for a tech/AI blog.

Evaluate each source and provide relevance scores. Consider:
- Timeliness and newsworthiness
- Technical depth and quality
- Interest level for AI/tech audience
- Uniqueness and novelty

SOURCES TO EVALUATE:
%s
Respond ONLY with a JSON array:
`+"```json"+`
[
    {
        "source_id": "<id>",
        "relevance_score": <0-100>,
        "suggested_topic": "<catchy article title/angle>",
        "reason": "<brief explanation>"
    },
    ...
]
`+"```", list.String())
}

// ImagePrompt builds the hero image generation prompt for an article.
func ImagePrompt(title, contentSummary string) string {
	return fmt.Sprintf(`Create a professional, modern hero image for a tech blog article.

Article Title: %s

Content Summary: %s

Image Requirements:
- Style: Clean, modern, professional tech illustration
- Colors: Use a blue/purple tech color palette with good contrast
- Composition: Centered, balanced, suitable for a blog header
- Text: Do NOT include any text in the image
- Aspect Ratio: 16:9 landscape format

Generate a visually striking image that represents the core theme of this AI/technology article.`,
		title, contentSummary)
}
