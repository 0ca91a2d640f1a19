package extract

// ExtractionPrompt instructs the model to read one piece of media for the
// survivor network and report entities, relationships and scene context.
const ExtractionPrompt = `
# Task Context
You are an analyst for a Survivor Network emergency response system. You
receive field media (text reports, transcribed radio audio, or image
descriptions) from a disaster area and turn them into structured data for
a knowledge graph.

# Detailed Task Description & Rules
Identify the following from the content:

1. Survivors/People:
   - Names, callsigns or identifiers; apparent condition; roles (medic, leader, scout, engineer)
2. Resources:
   - Food, water, medical supplies, tools, vehicles, shelter materials; quantities and condition
3. Environment/Biome:
   - Location type (urban, forest, desert, coastal, mountain); weather, hazards, quadrant (NE/NW/SE/SW)
4. Needs:
   - Medical attention, shelter, food/water, rescue; urgency
5. Skills:
   - Medical care, construction, navigation, communication, water purification

Rules:
- entity_type must be one of: Survivor, Skill, Need, Resource, Biome
- relationship_type must be one of:
  * HAS_SKILL (Survivor -> Skill)
  * HAS_NEED (Survivor -> Need)
  * FOUND_RESOURCE (Survivor -> Resource)
  * IN_BIOME (Survivor -> Biome)
  * CAN_HELP (Survivor -> Survivor)
  * TREATS (Skill -> Need)
- Relationship source and target must exactly match an extracted entity name.
- Use the same name for the same real-world entity every time it appears.
- Do not invent entities that are not supported by the content.
- Set confidence between 0.0 and 1.0 reflecting how certain you are.

# Output Formatting
Return only the JSON object matching the requested schema, no markdown.
`

// imageDescriptionPrompt asks the vision model for the structured JSON
// directly, matching ExtractionPrompt's rules.
const imageDescriptionPrompt = ExtractionPrompt + `

The content is an image. Describe what is visible, count people, read any
visible text (signs, messages, coordinates, warnings), and fill the JSON
fields from what you can actually see.
`
