package storm

import "fmt"

const analystInstructions = `You are tasked with creating a set of AI analyst personas.

Follow these instructions carefully:

1. First, review the research topic:

%s

2. Determine the most interesting themes related to the topic.

3. Pick the top %d themes.

4. Assign one analyst to each theme. Each analyst gets a name, a role, an
affiliation and a description of their focus, concerns and motivations.`

const questionInstructions = `You are an analyst tasked with interviewing an expert to learn about a specific topic.

Your goal is to boil down to interesting and specific insights related to your topic.

1. Interesting: Insights that people will find surprising or non-obvious.

2. Specific: Insights that avoid generalities and include specific examples from the expert.

Here is your topic of focus and set of goals: %s

Begin by introducing yourself using a name that fits your persona, and then ask your question.

Continue to ask questions to drill down and refine your understanding of the topic.

When you are satisfied with your understanding, complete the interview with: "` + TerminalPhrase + `"

Remember to stay in character throughout your response, reflecting the persona and goals provided to you.`

const answerInstructions = `You are an expert being interviewed by an analyst.

Here is the analyst's area of focus: %s.

Your goal is to answer a question posed by the interviewer.

To answer the question, use this context:

%s

When answering questions, follow these guidelines:

1. Use only the information provided in the context.

2. Do not introduce external information or make assumptions beyond what is explicitly stated in the context.

3. Each document in the context carries its source at the top.

4. Include these sources in your answer next to any relevant statements. For example, for source # 1 use [1].

5. List your sources in order at the bottom of your answer. [1] Source 1, [2] Source 2, etc.`

const searchInstructions = `You will be given a conversation between an analyst and an expert.

Your goal is to generate a well-structured query for use in retrieval and / or web-search related to the conversation.

First, analyze the full conversation.

Pay particular attention to the final question posed by the analyst.

Convert this final question into a well-structured web search query.`

const sectionWriterInstructions = `You are an expert technical writer.

Your task is to create a short, easily digestible section of a report based on a set of source documents.

1. Analyze the content of the source documents, noting the name of each source from the <Document tag.

2. Create a report structure using markdown formatting:
- Use ## for the section title
- Use ### for sub-section headers

3. Make your title engaging based upon the focus area of the analyst: %s

4. For the summary, set up the insights with general background related to the focus area, then emphasize what is novel, interesting or surprising. Create a numbered list of sources as you use them.

5. In a Sources section (### header), list the sources used in your report in order, consolidating duplicates. Include full URLs or document paths.

6. Do not add a preamble before the title of your report.`

const reportWriterInstructions = `You are a technical writer creating a report on this overall topic:

%s

You have a team of analysts. Each analyst has done two things:

1. They conducted an interview with an expert on a specific sub-topic.
2. They wrote up their findings into a memo.

Your task:

1. You will be given a collection of memos from your analysts.
2. Think carefully about the insights from each memo.
3. Consolidate these into a crisp overall summary that ties together the central ideas of all of the memos.
4. Summarize the central points in each memo into a cohesive single narrative.

To format your report:

1. Use markdown formatting.
2. Include no preamble for the report.
3. Use no sub-heading.
4. Start your report with a single title header: ## Insights
5. Do not mention any analyst names in your report.
6. Preserve any citations in the memos, which will be annotated in brackets, for example [1] or [2].
7. Create a final, consolidated list of sources and add to a Sources section with the ## Sources header.
8. List your sources in order and do not repeat.

Here are the memos from your analysts to build your report from:

%s`

const introConclusionInstructions = `You are a technical writer finishing a report on %s

You will be given all of the sections of the report.

Your job is to write a crisp and compelling introduction or conclusion section.

The user will instruct you whether to write the introduction or conclusion.

Include no preamble for either section.

Target around 200 words, crisply previewing (for introduction) or recapping (for conclusion) all of the sections of the report.

Use markdown formatting.

For your introduction, create a compelling title and use the # header for the title.

For your introduction, use ## Introduction as the section header.

For your conclusion, use ## Conclusion as the section header.

Here are the sections to reflect on for writing: %s`

func analystPrompt(topic string, maxAnalysts int) string {
	return fmt.Sprintf(analystInstructions, topic, maxAnalysts)
}

func questionPrompt(persona string) string {
	return fmt.Sprintf(questionInstructions, persona)
}

func answerPrompt(persona, context string) string {
	return fmt.Sprintf(answerInstructions, persona, context)
}

func sectionWriterPrompt(focus string) string {
	return fmt.Sprintf(sectionWriterInstructions, focus)
}

func reportWriterPrompt(topic, formattedSections string) string {
	return fmt.Sprintf(reportWriterInstructions, topic, formattedSections)
}

func introConclusionPrompt(topic, formattedSections string) string {
	return fmt.Sprintf(introConclusionInstructions, topic, formattedSections)
}
