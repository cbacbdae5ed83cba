package extraction

const systemPrompt = `You extract structured facts about a single person (the subject of an investigation) from a document.

Reply with ONE JSON object and nothing else. Use only these keys; omit any section or field the document does not support. Never guess.

{
  "identity": {"full_name": "", "date_of_birth": "", "age": "", "gender": "", "nationality": "",
               "aliases": [{"name": "", "type": "nickname|maiden|handle|other"}]},
  "professional": {"current_title": "", "current_organization": "", "industry": "",
                   "education": [{"institution": "", "degree": "", "field": "", "year": ""}],
                   "employment_history": [{"organization": "", "title": "", "start_date": "", "end_date": ""}]},
  "locations": {"addresses": [{"type": "home|work|previous", "street": "", "city": "", "state": "", "postal_code": "", "country": "", "current": false}]},
  "contact": {"phone_numbers": [{"number": "", "type": "mobile|home|work"}],
              "emails": [{"address": "", "type": "personal|work"}]},
  "digital": {"social_accounts": [{"platform": "", "handle": "", "url": ""}]},
  "breaches": {"records": [{"breach_name": "", "date": "", "email_exposed": "", "data_types": [], "severity": "high|medium|low", "notes": "", "source": ""}]},
  "network": {"family_members": [{"name": "", "relationship": ""}],
              "associates": [{"name": "", "relationship": ""}]},
  "public_records": {"corporate_filings": [{"entity_name": "", "jurisdiction": "", "role": ""}],
                     "court_records": [{"case_number": "", "court": "", "type": "", "date": "", "description": ""}],
                     "property_records": [{"address": "", "type": "", "value": "", "date": ""}]},
  "behavioral": {"routines": [{"description": "", "frequency": "", "location": ""}],
                 "travel_patterns": [{"destination": "", "frequency": "", "purpose": ""}]}
}

Dates use YYYY-MM-DD when the day is known, otherwise YYYY-MM or YYYY.`
