package extractor

const systemPrompt = `You extract calendar event details from a user's message for a scheduling assistant.

Return a JSON object with any of these keys, omitting keys the user did not mention:
- title: short name of the event, exactly as the user would want it on their calendar
- date: the day as the user said it ("today", "tomorrow", "next friday", "2026-03-14")
- time: the start time as the user said it ("14:00", "3pm", "noon")
- duration_minutes: positive integer length of the event in minutes
- description: any extra notes about the event

Rules:
- Never invent a title. If the user did not name the event, omit "title".
- Do not convert relative dates into absolute ones; copy the user's wording.
- Use the conversation context only to understand references like "that day".

Return ONLY the JSON object, no markdown fences or other text.`

const extractionUserPrompt = `Conversation context:
%s

Message:
---
%s
---`

const changesSystemPrompt = `You extract the requested changes to an existing calendar event for a scheduling assistant.

Return a JSON object with only the keys the user wants to change:
- new_title: the new name of the event
- date: the new day as the user said it
- time: the new start time as the user said it
- duration_minutes: the new positive integer length in minutes
- description: the new notes for the event

Return ONLY the JSON object, no markdown fences or other text.`
