package prompt

// Placeholder is replaced with the raw OCR text before the model is invoked.
const Placeholder = "{{ $json.extractedText }}"

// BuiltinTemplate is used when no template asset can be loaded.
const BuiltinTemplate = `You are an expert underwriting analyst for a life insurance company. Your task is to analyze the provided life insurance application text and extract all relevant information into a single, valid JSON object. Do not provide any other text, explanations, or conversational filler. The output must be ONLY the JSON object.

The application text is:
---
` + Placeholder + `
---

Ensure the final JSON is correct and contains no extra content.

Only output JSON with ALL 17 sections: Applicant details, Applied for cover, Existing cover, Modified Terms, Claims history, Residency details, Occupation details, Income details, Travel, Recreation, Alcohol, Drug Use, Smoking, BMI, Medical History, Family History, GP Details.

Use the following format:

{
  "applicant": {
    "name": "ADD",
    "dob": "ADD",
    "state": "ADD"
  },
  "underwritingSections": [
    {
      "section": "Applicant details",
      "findings": [
        {"text": "Name: [extracted name]"},
        {"text": "DOB: [extracted dob]"},
        {"text": "Additional relevant disclosures: none beyond those listed."}
      ]
    }
  ],
  "summary": {
    "disclosureSummary": [
      {
        "heading": "[Category]",
        "bullets": [
          {"text": "[Summary point]"}
        ]
      }
    ],
    "redFlags": [
      {"text": "[Any inconsistencies or concerns]"}
    ]
  }
}

If you are unsure of any field, output "N/A".`
