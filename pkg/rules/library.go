package rules

import "time"

// Library returns the prebuilt clinical rule sets shipped with the engine.
// Deployments typically start from these and layer site-specific rules on
// top via a FileSource.
//
// Fact paths follow the prefetch-data conventions used throughout the
// engine: patient demographics under "patient", active medications under
// "patient.medications", problem list under "patient.conditions", lab
// results under "labs", allergies under "patient.allergies".
func Library() []*RuleSet {
	return []*RuleSet{
		medicationSafetySet(),
		preventiveCareSet(),
		chronicDiseaseSet(),
	}
}

func medicationSafetySet() *RuleSet {
	return &RuleSet{
		Name:        "medication-safety",
		Description: "Drug interaction, dosing, and contraindication checks",
		Rules: []*Rule{
			{
				ID:       "warfarin-nsaid-interaction",
				Name:     "Warfarin + NSAID interaction",
				Category: "medication-safety",
				Priority: PriorityCritical,
				Enabled:  true,
				Conditions: []*Condition{
					Field("patient.medications[].name", OperatorContains, "warfarin"),
					Any(
						Field("patient.medications[].name", OperatorContains, "ibuprofen"),
						Field("patient.medications[].name", OperatorContains, "naproxen"),
						Field("patient.medications[].name", OperatorContains, "ketorolac"),
					),
				},
				Actions: []Action{{
					Type:     "alert",
					Summary:  "Major interaction: warfarin with NSAID",
					Detail:   "Concurrent warfarin and NSAID use substantially increases bleeding risk.",
					Severity: SeverityCritical,
					Suggestions: []string{
						"Consider acetaminophen for analgesia",
						"If NSAID is unavoidable, add gastroprotection and recheck INR within one week",
					},
				}},
			},
			{
				ID:       "metformin-renal-dosing",
				Name:     "Metformin in severe renal impairment",
				Category: "medication-safety",
				Priority: PriorityCritical,
				Enabled:  true,
				Conditions: []*Condition{
					Field("patient.medications[].name", OperatorContains, "metformin"),
					FieldTyped("labs.egfr.value", OperatorLessThan, 30, ValueTypeNumber),
				},
				Actions: []Action{{
					Type:     "alert",
					Summary:  "Metformin contraindicated below eGFR 30",
					Detail:   "Metformin is contraindicated at eGFR < 30 mL/min/1.73m2 due to lactic acidosis risk.",
					Severity: SeverityCritical,
					Suggestions: []string{
						"Discontinue metformin",
						"Consider alternative glucose-lowering therapy",
					},
				}},
			},
			{
				ID:       "senior-sedative-use",
				Name:     "Sedative-hypnotic use in seniors",
				Category: "medication-safety",
				Priority: PriorityHigh,
				Enabled:  true,
				Conditions: []*Condition{
					FieldTyped("patient.age", OperatorGreaterEqual, 65, ValueTypeNumber),
					Any(
						Field("patient.medications[].class", OperatorEqual, "benzodiazepine"),
						Field("patient.medications[].class", OperatorEqual, "z-drug"),
					),
				},
				Actions: []Action{{
					Type:     "alert",
					Summary:  "Fall risk: sedative-hypnotic in patient 65+",
					Detail:   "Benzodiazepines and z-drugs are on the Beers list for adults 65 and older.",
					Severity: SeverityWarning,
					Suggestions: []string{
						"Assess fall risk and consider taper",
						"Offer non-pharmacologic sleep measures",
					},
					Links: []string{"https://www.americangeriatrics.org/beers-criteria"},
				}},
			},
			{
				ID:       "penicillin-allergy-contraindication",
				Name:     "Penicillin-class order with documented allergy",
				Category: "medication-safety",
				Priority: PriorityCritical,
				Enabled:  true,
				Conditions: []*Condition{
					Field("patient.allergies[].substance", OperatorContains, "penicillin"),
					Field("order.medication.class", OperatorEqual, "penicillin"),
				},
				Actions: []Action{{
					Type:     "alert",
					Summary:  "Documented penicillin allergy",
					Detail:   "The ordered medication belongs to the penicillin class and the patient has a documented penicillin allergy.",
					Severity: SeverityCritical,
					Suggestions: []string{
						"Review allergy severity and reaction history",
						"Consider a non-beta-lactam alternative",
					},
				}},
			},
		},
	}
}

func preventiveCareSet() *RuleSet {
	return &RuleSet{
		Name:        "preventive-care",
		Description: "Screening and immunization reminders",
		Rules: []*Rule{
			{
				ID:       "senior-care-plan",
				Name:     "Geriatric care plan for patients 65+",
				Category: "preventive-care",
				Priority: PriorityMedium,
				Enabled:  true,
				Conditions: []*Condition{
					FieldTyped("patient.age", OperatorGreaterEqual, 65, ValueTypeNumber),
				},
				Actions: []Action{{
					Type:     "suggestion",
					Summary:  "senior-care",
					Detail:   "Patient qualifies for an annual geriatric assessment.",
					Severity: SeverityInfo,
					Suggestions: []string{
						"Schedule annual wellness visit",
						"Screen for falls, cognition, and polypharmacy",
					},
				}},
			},
			{
				ID:       "influenza-vaccine-gap",
				Name:     "Influenza vaccination gap",
				Category: "preventive-care",
				Priority: PriorityLow,
				Enabled:  true,
				Conditions: []*Condition{
					Not(Exists("patient.immunizations.influenza.date")),
				},
				Actions: []Action{{
					Type:     "suggestion",
					Summary:  "Influenza vaccine not on record",
					Severity: SeverityInfo,
					Suggestions: []string{
						"Offer seasonal influenza vaccination",
					},
				}},
			},
			{
				ID:       "colonoscopy-screening",
				Name:     "Colorectal cancer screening",
				Category: "preventive-care",
				Priority: PriorityLow,
				Enabled:  true,
				Conditions: []*Condition{
					FieldTyped("patient.age", OperatorGreaterEqual, 45, ValueTypeNumber),
					FieldTyped("patient.age", OperatorLessEqual, 75, ValueTypeNumber),
					Not(Exists("patient.screenings.colonoscopy.date")),
				},
				Actions: []Action{{
					Type:     "suggestion",
					Summary:  "Colorectal cancer screening due",
					Severity: SeverityInfo,
					Suggestions: []string{
						"Discuss colonoscopy or FIT testing",
					},
				}},
			},
		},
	}
}

func chronicDiseaseSet() *RuleSet {
	// HbA1c is due twice yearly; anything older than six months counts as
	// overdue. The threshold is fixed at construction time, which matches
	// the per-request lifecycle: the library is rebuilt on engine reload.
	a1cThreshold := time.Now().AddDate(0, -6, 0).Format("2006-01-02")

	return &RuleSet{
		Name:        "chronic-disease",
		Description: "Chronic condition monitoring and control",
		Rules: []*Rule{
			{
				ID:       "diabetes-a1c-overdue",
				Name:     "HbA1c overdue for diabetic patient",
				Category: "chronic-disease",
				Priority: PriorityHigh,
				Enabled:  true,
				Conditions: []*Condition{
					Field("patient.conditions[].code", OperatorMatches, "^E1[01]"),
					Any(
						Not(Exists("labs.hba1c.date")),
						FieldTyped("labs.hba1c.date", OperatorLessThan, a1cThreshold, ValueTypeDate),
					),
				},
				Actions: []Action{{
					Type:     "order",
					Summary:  "HbA1c testing overdue",
					Detail:   "Diabetic patients should have HbA1c measured at least twice yearly.",
					Severity: SeverityWarning,
					Suggestions: []string{
						"Order HbA1c",
					},
				}},
			},
			{
				ID:       "hypertension-stage2",
				Name:     "Stage 2 hypertension reading",
				Category: "chronic-disease",
				Priority: PriorityHigh,
				Enabled:  true,
				Conditions: []*Condition{
					Any(
						FieldTyped("vitals.bp.systolic", OperatorGreaterEqual, 140, ValueTypeNumber),
						FieldTyped("vitals.bp.diastolic", OperatorGreaterEqual, 90, ValueTypeNumber),
					),
				},
				Actions: []Action{{
					Type:     "alert",
					Summary:  "Blood pressure in stage 2 range",
					Detail:   "Most recent reading meets stage 2 hypertension thresholds.",
					Severity: SeverityWarning,
					Suggestions: []string{
						"Confirm with repeat measurement",
						"Review antihypertensive regimen",
					},
				}},
			},
			{
				ID:       "ckd-ace-arb-review",
				Name:     "CKD without ACE/ARB therapy",
				Category: "chronic-disease",
				Priority: PriorityMedium,
				Enabled:  true,
				Conditions: []*Condition{
					Field("patient.conditions[].code", OperatorMatches, "^N18"),
					Not(Any(
						Field("patient.medications[].class", OperatorEqual, "ace-inhibitor"),
						Field("patient.medications[].class", OperatorEqual, "arb"),
					)),
				},
				Actions: []Action{{
					Type:     "suggestion",
					Summary:  "Consider ACE inhibitor or ARB",
					Detail:   "Patients with CKD and proteinuria benefit from ACE inhibitor or ARB therapy.",
					Severity: SeverityInfo,
					Suggestions: []string{
						"Check urine albumin-to-creatinine ratio",
						"Start ACE inhibitor or ARB if not contraindicated",
					},
				}},
			},
		},
	}
}
