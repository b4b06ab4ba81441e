package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

func strPtr(v string) *string { return &v }

func pricePtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// SampleMedicines returns the starter catalog used for local development.
func SampleMedicines() []MedicineInput {
	return []MedicineInput{
		{
			Code:           "MED001",
			NameAR:         "بانادول",
			NameEN:         strPtr("Panadol"),
			ScientificName: strPtr("Paracetamol 500mg"),
			Manufacturer:   strPtr("GlaxoSmithKline"),
			DescriptionAR:  strPtr("مسكن للألم وخافض للحرارة"),
			DescriptionEN:  strPtr("Pain reliever and fever reducer"),
			Dosage:         strPtr("قرص واحد كل 4-6 ساعات (حد أقصى 4 جرام يومياً)"),
			SideEffects:    strPtr("نادراً: غثيان، طفح جلدي، اضطرابات في الكبد عند الإفراط"),
			Warnings:       strPtr("لا تتجاوز الجرعة الموصى بها. تجنب الكحول."),
			Category:       strPtr("مسكنات"),
			Price:          pricePtr("15.50"),
		},
		{
			Code:           "MED002",
			NameAR:         "كونجستال",
			NameEN:         strPtr("Congestal"),
			ScientificName: strPtr("Paracetamol + Pseudoephedrine"),
			Manufacturer:   strPtr("Medical Union Pharmaceuticals"),
			DescriptionAR:  strPtr("علاج لأعراض البرد والإنفلونزا"),
			DescriptionEN:  strPtr("Treatment for cold and flu symptoms"),
			Dosage:         strPtr("قرص واحد 3 مرات يومياً"),
			SideEffects:    strPtr("دوخة، جفاف الفم، أرق"),
			Warnings:       strPtr("لا يستخدم مع أدوية ضغط الدم. تجنب القيادة."),
			Category:       strPtr("أدوية البرد والإنفلونزا"),
			Price:          pricePtr("22.00"),
		},
		{
			Code:           "MED003",
			NameAR:         "فيفادول",
			NameEN:         strPtr("Fevadol"),
			ScientificName: strPtr("Paracetamol 1000mg"),
			Manufacturer:   strPtr("Spimaco"),
			DescriptionAR:  strPtr("مسكن قوي للألم وخافض للحرارة"),
			DescriptionEN:  strPtr("Strong pain reliever and antipyretic"),
			Dosage:         strPtr("قرص واحد كل 6-8 ساعات"),
			SideEffects:    strPtr("نادراً: حساسية جلدية"),
			Warnings:       strPtr("لا يستخدم لأكثر من 10 أيام بدون استشارة طبيب"),
			Category:       strPtr("مسكنات"),
			Price:          pricePtr("18.00"),
		},
		{
			Code:           "MED004",
			NameAR:         "بروفين",
			NameEN:         strPtr("Brufen"),
			ScientificName: strPtr("Ibuprofen 400mg"),
			Manufacturer:   strPtr("Abbott"),
			DescriptionAR:  strPtr("مسكن للألم ومضاد للالتهاب"),
			DescriptionEN:  strPtr("Pain reliever and anti-inflammatory"),
			Dosage:         strPtr("قرص واحد 3 مرات يومياً بعد الأكل"),
			SideEffects:    strPtr("ألم في المعدة، غثيان، حرقة المعدة"),
			Warnings:       strPtr("تجنب على معدة فارغة. لا يستخدم مع أمراض القلب."),
			Category:       strPtr("مضادات الالتهاب"),
			Price:          pricePtr("25.00"),
		},
		{
			Code:           "MED005",
			NameAR:         "فيتامين سي 1000",
			NameEN:         strPtr("Vitamin C 1000"),
			ScientificName: strPtr("Ascorbic Acid 1000mg"),
			Manufacturer:   strPtr("Various"),
			DescriptionAR:  strPtr("مكمل غذائي لتقوية المناعة"),
			DescriptionEN:  strPtr("Dietary supplement for immune system"),
			Dosage:         strPtr("قرص واحد يومياً"),
			SideEffects:    strPtr("نادراً: اضطرابات معوية خفيفة"),
			Warnings:       strPtr("لا يتجاوز 2000 ملجم يومياً"),
			Category:       strPtr("فيتامينات"),
			Price:          pricePtr("35.00"),
		},
		{
			Code:           "MED006",
			NameAR:         "أنتينال",
			NameEN:         strPtr("Antinal"),
			ScientificName: strPtr("Nifuroxazide 200mg"),
			Manufacturer:   strPtr("Amoun"),
			DescriptionAR:  strPtr("مطهر معوي لعلاج الإسهال"),
			DescriptionEN:  strPtr("Intestinal antiseptic for diarrhea"),
			Dosage:         strPtr("قرص واحد 4 مرات يومياً"),
			SideEffects:    strPtr("نادراً: حساسية"),
			Warnings:       strPtr("يجب شرب سوائل كثيرة أثناء العلاج"),
			Category:       strPtr("أدوية الجهاز الهضمي"),
			Price:          pricePtr("20.00"),
		},
		{
			Code:           "MED007",
			NameAR:         "أوجمنتين",
			NameEN:         strPtr("Augmentin"),
			ScientificName: strPtr("Amoxicillin + Clavulanic Acid"),
			Manufacturer:   strPtr("GlaxoSmithKline"),
			DescriptionAR:  strPtr("مضاد حيوي واسع المجال"),
			DescriptionEN:  strPtr("Broad-spectrum antibiotic"),
			Dosage:         strPtr("قرص كل 12 ساعة لمدة 7 أيام"),
			SideEffects:    strPtr("إسهال، غثيان، طفح جلدي"),
			Warnings:       strPtr("يجب إكمال الكورس كاملاً. لا يستخدم بدون وصفة طبية."),
			Category:       strPtr("مضادات حيوية"),
			Price:          pricePtr("65.00"),
		},
		{
			Code:           "MED008",
			NameAR:         "فلاجيل",
			NameEN:         strPtr("Flagyl"),
			ScientificName: strPtr("Metronidazole 500mg"),
			Manufacturer:   strPtr("Sanofi"),
			DescriptionAR:  strPtr("مضاد للطفيليات والبكتيريا اللاهوائية"),
			DescriptionEN:  strPtr("Antiprotozoal and antibacterial"),
			Dosage:         strPtr("قرص 3 مرات يومياً"),
			SideEffects:    strPtr("طعم معدني في الفم، غثيان"),
			Warnings:       strPtr("تجنب الكحول تماماً أثناء العلاج"),
			Category:       strPtr("مضادات حيوية"),
			Price:          pricePtr("28.00"),
		},
	}
}

// LoadSample upserts the starter catalog.
func (i *Importer) LoadSample(ctx context.Context) (*ImportReport, error) {
	report := &ImportReport{Failures: []RowIssue{}, Warnings: []RowIssue{}}
	for idx, input := range SampleMedicines() {
		_, created, err := i.svc.Upsert(ctx, input)
		if err != nil {
			return report, fmt.Errorf("sample %d (%s): %w", idx+1, input.Code, err)
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}
	i.metrics.AddRows("created", report.Created)
	i.metrics.AddRows("updated", report.Updated)
	return report, nil
}
