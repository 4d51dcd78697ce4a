package capability

import (
	"reflect"
	"strings"
	"testing"

	"combocheck/pkg/combos"
)

const legacyExport = `<UE-EUTRA-Capability>
  <rf-Parameters-v1020>
    <supportedBandCombination-r10>
      <BandCombinationParameters-r10>
        <BandParameters-r10>
          <bandEUTRA-r10>1</bandEUTRA-r10>
          <bandParametersDL-r10><ca-BandwidthClassDL-r10>a</ca-BandwidthClassDL-r10></bandParametersDL-r10>
        </BandParameters-r10>
        <BandParameters-r10>
          <bandEUTRA-r10>3</bandEUTRA-r10>
          <bandParametersDL-r10><ca-BandwidthClassDL-r10>a</ca-BandwidthClassDL-r10></bandParametersDL-r10>
        </BandParameters-r10>
        <supportedBandwidthCombinationSet-r10>0 2</supportedBandwidthCombinationSet-r10>
      </BandCombinationParameters-r10>
    </supportedBandCombination-r10>
  </rf-Parameters-v1020>
</UE-EUTRA-Capability>`

func TestParse_LegacyRelease10Export(t *testing.T) {
	result := Parse([]byte(legacyExport))

	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}
	lte := result.Sets[combos.CategoryLTECA]
	combo, ok := lte.Get("1A-3A")
	if !ok {
		t.Fatalf("expected combo 1A-3A, got keys %v", lte.Keys())
	}
	if !reflect.DeepEqual(combos.NormalizeBCS(combo.BCS), []int{0, 2}) {
		t.Fatalf("expected BCS [0 2], got %v", combo.BCS)
	}
}

func TestParse_NewestVariantWins(t *testing.T) {
	doc := `<UE-EUTRA-Capability>
	  <supportedBandCombinationReduced-r13>
	    <BandCombinationParametersExt-r13>
	      <BandParameters-r13><bandEUTRA-r13>7</bandEUTRA-r13></BandParameters-r13>
	    </BandCombinationParametersExt-r13>
	  </supportedBandCombinationReduced-r13>
	  <supportedBandCombination-r10>
	    <BandCombinationParameters-r10>
	      <BandParameters-r10><bandEUTRA-r10>1</bandEUTRA-r10></BandParameters-r10>
	    </BandCombinationParameters-r10>
	  </supportedBandCombination-r10>
	</UE-EUTRA-Capability>`

	result := Parse([]byte(doc))
	lte := result.Sets[combos.CategoryLTECA]

	if lte.Len() != 1 {
		t.Fatalf("expected only the newest variant consulted, got keys %v", lte.Keys())
	}
	if _, ok := lte.Get("7A"); !ok {
		t.Fatalf("expected combo from r13 list, got keys %v", lte.Keys())
	}
}

const mrdcExport = `<UE-MRDC-Capability>
  <rf-ParametersMRDC>
    <supportedBandCombinationList>
      <BandCombination>
        <bandList>
          <lte><bandEUTRA>66</bandEUTRA><ca-BandwidthClassDL-EUTRA>classA</ca-BandwidthClassDL-EUTRA></lte>
          <nr><bandNR>77</bandNR><maxNumberMIMO-LayersDL>four</maxNumberMIMO-LayersDL></nr>
        </bandList>
      </BandCombination>
    </supportedBandCombinationList>
  </rf-ParametersMRDC>
</UE-MRDC-Capability>`

func TestParse_DualConnectivityExport(t *testing.T) {
	result := Parse([]byte(mrdcExport))

	endc := result.Sets[combos.CategoryENDC]
	combo, ok := endc.Get("66A-n77A")
	if !ok {
		t.Fatalf("expected EN-DC 66A-n77A, got keys %v", endc.Keys())
	}
	if combo.Components[0].Class != "A" {
		t.Fatalf("expected classA spelling tolerated, got %q", combo.Components[0].Class)
	}
	if combo.Components[1].MIMOLayers != 4 {
		t.Fatalf("expected named layer count parsed, got %d", combo.Components[1].MIMOLayers)
	}
}

func TestParse_NRAggregationExport(t *testing.T) {
	doc := `<UE-NR-Capability>
	  <rf-Parameters>
	    <supportedBandCombinationList>
	      <BandCombination-NR>
	        <bandNR>77</bandNR>
	        <bandNR>78</bandNR>
	      </BandCombination-NR>
	    </supportedBandCombinationList>
	  </rf-Parameters>
	</UE-NR-Capability>`

	result := Parse([]byte(doc))
	if _, ok := result.Sets[combos.CategoryNRCA].Get("n77A-n78A"); !ok {
		t.Fatalf("expected NR CA n77A-n78A, got keys %v", result.Sets[combos.CategoryNRCA].Keys())
	}
	if result.Sets[combos.CategoryNRDC].Len() != 0 {
		t.Fatalf("NR-only aggregation must not count as NR-DC, got keys %v", result.Sets[combos.CategoryNRDC].Keys())
	}
}

func TestParse_GenericTextFallback(t *testing.T) {
	doc := `<export><combos>1A-3A-7A, B2A+N77A</combos></export>`

	result := Parse([]byte(doc))

	if _, ok := result.Sets[combos.CategoryLTECA].Get("1A-3A-7A"); !ok {
		t.Fatalf("expected generic token scan to find 1A-3A-7A, got keys %v", result.Sets[combos.CategoryLTECA].Keys())
	}
	if _, ok := result.Sets[combos.CategoryENDC].Get("2A-n77A"); !ok {
		t.Fatalf("expected generic token scan to find 2A-n77A, got keys %v", result.Sets[combos.CategoryENDC].Keys())
	}
}

func TestParse_UnknownSchemaWarns(t *testing.T) {
	result := Parse([]byte("<export><unrelated>data</unrelated></export>"))

	if result.TotalCombos() != 0 {
		t.Fatalf("expected no combos, got %d", result.TotalCombos())
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected variant warning, got %v", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], combos.ErrUnsupportedVariant.Error()) {
		t.Fatalf("expected unsupported-variant wording, got %q", result.Warnings[0])
	}
}

func TestParse_MalformedDocumentWarns(t *testing.T) {
	result := Parse([]byte("<UE-EUTRA-Capability><oops"))

	if len(result.Warnings) != 1 {
		t.Fatalf("expected one parse warning, got %v", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], combos.ErrMalformedDocument.Error()) {
		t.Fatalf("expected malformed-document wording, got %q", result.Warnings[0])
	}
	if result.TotalCombos() != 0 {
		t.Fatalf("expected empty result, got %d combos", result.TotalCombos())
	}
}
