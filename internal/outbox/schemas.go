package outbox

const activityLoggedSchema = `{
  "type": "object",
  "title": "ActivityLogged",
  "properties": {
    "activity_id": {"type": "string"},
    "user_id": {"type": "string"},
    "category": {"type": "string"},
    "subtype": {"type": "string"},
    "amount": {"type": "number"},
    "unit": {"type": "string"},
    "co2e_kg": {"type": "number"},
    "occurred_at": {"type": "string", "format": "date-time"},
    "logged_at": {"type": "string", "format": "date-time"},
    "version": {"type": "string"}
  },
  "required": ["activity_id", "user_id", "category", "subtype", "amount", "unit", "co2e_kg", "occurred_at", "logged_at", "version"],
  "additionalProperties": false
}`
