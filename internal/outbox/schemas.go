package outbox

const selectionChangedSchema = `{
  "type": "object",
  "title": "SelectionChanged",
  "properties": {
    "user_id": {"type": "string"},
    "category": {"type": "string"},
    "text": {"type": "string"},
    "selected": {"type": "boolean"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["user_id", "category", "text", "selected", "occurred_at"],
  "additionalProperties": false
}`
