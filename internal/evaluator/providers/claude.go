package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"job-agent-core/internal/config"
	"job-agent-core/internal/logging"
	"job-agent-core/internal/logging/types"
	"job-agent-core/pkg/models"
)

// ClaudeProvider implements the evaluation provider interface using
// Anthropic's Claude
type ClaudeProvider struct {
	client anthropic.Client
	config *config.Config
	logger types.Logger
}

// NewClaudeProvider creates a new Claude provider instance
func NewClaudeProvider(cfg *config.Config) *ClaudeProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.LLM.APIKey),
	)

	return &ClaudeProvider{
		client: client,
		config: cfg,
		logger: logging.GetGlobalLogger(),
	}
}

func (cp *ClaudeProvider) complete(ctx context.Context, prompt string) (string, error) {
	response, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(cp.config.LLM.Model),
		MaxTokens:   int64(cp.config.LLM.MaxTokens),
		Temperature: anthropic.Float(float64(cp.config.LLM.Temperature)),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Claude API: %w", err)
	}

	if len(response.Content) == 0 {
		return "", fmt.Errorf("empty response from Claude")
	}

	var responseText string
	for _, content := range response.Content {
		textContent := content.AsText()
		responseText = textContent.Text
		break
	}

	if responseText == "" {
		return "", fmt.Errorf("no text content in Claude response")
	}

	return stripCodeFences(responseText), nil
}

// stripCodeFences removes markdown code blocks Claude sometimes wraps JSON in
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	return text
}

// Sanitize strips PII from raw CV text and returns a structured professional
// profile suitable for matching
func (cp *ClaudeProvider) Sanitize(ctx context.Context, rawCV string) (string, error) {
	startTime := time.Now()

	cp.logger.Info("Starting CV sanitization with Claude", map[string]interface{}{
		"cv_length": len(rawCV),
		"provider":  "claude",
	})

	// Rough estimation of 3 chars per token to stay inside the window
	maxContentLength := cp.config.LLM.MaxTokens * 3
	if len(rawCV) > maxContentLength {
		rawCV = rawCV[:maxContentLength] + "..."
		cp.logger.Debug("CV content truncated to fit token limits")
	}

	responseText, err := cp.complete(ctx, cp.buildSanitizePrompt(rawCV))
	if err != nil {
		return "", err
	}

	cp.logger.Info("CV sanitization completed", map[string]interface{}{
		"processing_time": time.Since(startTime),
		"profile_length":  len(responseText),
		"provider":        "claude",
	})

	return responseText, nil
}

// buildSanitizePrompt creates the PII removal prompt
func (cp *ClaudeProvider) buildSanitizePrompt(rawCV string) string {
	return fmt.Sprintf(`You are an expert at extracting professional information from CV/resume documents.

Your job:
- Extract ONLY professional information relevant for job matching
- DO NOT include any personally identifiable information (PII) except company and university names
- Structure the information in a clean, standardized format
- Preserve technical skills, experience context, and qualifications

What to EXTRACT:
1. Professional Summary: overview of background, career focus, key strengths
2. Skills: technical skills, methodologies, domain expertise, soft skills if clearly mentioned
3. Work Experience: for each position the job title, company name (as-is), duration, key responsibilities and achievements, technologies used
4. Education: degree and major, institution name (as-is), graduation year, GPA if mentioned
5. Certifications: professional certifications with certifying body
6. Languages: languages spoken with proficiency level if mentioned
7. Years of Experience: estimated total years of professional experience

What to EXCLUDE (PII):
- Candidate's name
- Contact information (email, phone, address)
- URLs (LinkedIn, GitHub, personal websites)
- Dates of birth, ages
- National IDs, SSNs
- References or colleague names

Guidelines:
- Keep company and university names intact
- Keep responsibilities and achievements, removing unrelated or personal details
- If a responsibility mentions specific internal project names, generalize them
- Return the structured profile as plain text sections, no additional commentary

CV CONTENT:
%s`, rawCV)
}

// EvaluateRelevance judges whether a job listing fits the candidate profile
func (cp *ClaudeProvider) EvaluateRelevance(ctx context.Context, job models.JobListing, sanitizedCV string) (*models.RelevanceResult, error) {
	startTime := time.Now()

	cp.logger.Debug("Starting relevance evaluation with Claude", map[string]interface{}{
		"job_title": job.Title,
		"company":   job.Company,
		"provider":  "claude",
	})

	responseText, err := cp.complete(ctx, cp.buildRelevancePrompt(job, sanitizedCV))
	if err != nil {
		return nil, err
	}

	var result models.RelevanceResult
	if err := json.Unmarshal([]byte(responseText), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response from Claude: %w, response: %s", err, responseText)
	}

	cp.logger.Debug("Relevance evaluation completed", map[string]interface{}{
		"job_title":       job.Title,
		"relevant":        result.Relevant,
		"processing_time": time.Since(startTime),
		"provider":        "claude",
	})

	return &result, nil
}

// buildRelevancePrompt creates the job relevance prompt
func (cp *ClaudeProvider) buildRelevancePrompt(job models.JobListing, sanitizedCV string) string {
	return fmt.Sprintf(`You are an expert at analyzing job postings and matching them with candidate profiles.

Your job:
- Determine if a job posting is roughly relevant to the candidate based on their CV
- Be LENIENT - default to marking jobs as RELEVANT unless they are clearly a mismatch
- A job should only be marked as IRRELEVANT if it is in a completely different field or requires fundamentally different skills

MARK AS IRRELEVANT only if:
1. The job is in a completely different domain (e.g., CV is for Software Engineer but job is for HR, Marketing, Sales, Accountant)
2. The job is for a specialized role that does not match the candidate's profile (e.g., CV is for Backend Engineer but job is for pure QA, pure DevOps/SRE, native Mobile, Embedded Systems, Hardware)
3. The primary programming language/tech stack is completely different with no overlap
4. The seniority level is drastically mismatched (Senior/Lead CV vs Intern/Junior job, or vice versa)

MARK AS RELEVANT if:
- The job matches the candidate's primary role
- The tech stack has ANY reasonable overlap with the candidate's skills
- The job is in a related field
- The candidate has transferable skills even if not all requirements are met
- When in doubt, mark as RELEVANT

Return ONLY a valid JSON object with exactly these fields, no additional text:

{
  "relevant": boolean - true if the job is relevant to the candidate's profile,
  "reason": "string - one short sentence explaining the decision"
}

CANDIDATE PROFILE:
%s

JOB POSTING:
Title: %s
Company: %s
Location: %s
Employment type: %s
Description:
%s`, sanitizedCV, job.Title, job.Company, job.Location, job.EmploymentType, job.Description)
}

// ExtractSkills pulls the skills a job listing asks for
func (cp *ClaudeProvider) ExtractSkills(ctx context.Context, job models.JobListing) ([]string, error) {
	responseText, err := cp.complete(ctx, cp.buildSkillsPrompt(job))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Skills []string `json:"skills"`
	}
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response from Claude: %w, response: %s", err, responseText)
	}

	return parsed.Skills, nil
}

// buildSkillsPrompt creates the skill extraction prompt
func (cp *ClaudeProvider) buildSkillsPrompt(job models.JobListing) string {
	return fmt.Sprintf(`You are an expert at analyzing job postings.

Extract the skills this job posting asks for: programming languages, frameworks, tools, methodologies and domain expertise. Include both required and nice-to-have skills. Normalize each skill to its common short name (e.g. "PostgreSQL", "Kubernetes", "React").

Return ONLY a valid JSON object with exactly this field, no additional text:

{
  "skills": ["array of strings - the skills the posting asks for"]
}

JOB POSTING:
Title: %s
Description:
%s`, job.Title, job.Description)
}

// IsHealthy checks if the Claude provider is healthy and available
func (cp *ClaudeProvider) IsHealthy(ctx context.Context) error {
	if cp.config.LLM.APIKey == "" {
		return fmt.Errorf("Claude API key not configured - set LLM_API_KEY environment variable")
	}

	_, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cp.config.LLM.Model),
		MaxTokens: 16,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: "Hello"},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})

	if err != nil {
		return fmt.Errorf("Claude API health check failed: %w", err)
	}

	return nil
}

// GetProviderName returns the name of the provider
func (cp *ClaudeProvider) GetProviderName() string {
	return "claude"
}
